// Package config holds the settings of every command. Defaults reproduce the
// layout the tools were built around; a YAML file may override any field.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/radiomics"
)

const (
	EngineNative      = "native"
	EnginePyRadiomics = "pyradiomics"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// maxFileSize bounds the config file read.
const maxFileSize = 1 * 1024 * 1024

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Organize OrganizeConfig `yaml:"organize"`
	Collect  CollectConfig  `yaml:"collect"`
	Extract  ExtractConfig  `yaml:"extract"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OrganizeConfig configures the directory reorganizer.
type OrganizeConfig struct {
	Source             string `yaml:"source"`
	Destination        string `yaml:"destination"`
	VolumeExtension    string `yaml:"volume_extension"`
	SegmentationSuffix string `yaml:"segmentation_suffix"`
	ScanName           string `yaml:"scan_name"`
	SegmentationName   string `yaml:"segmentation_name"`
}

// CollectConfig configures the CSV collector. AggregateName is matched
// case-insensitively.
type CollectConfig struct {
	Source        string `yaml:"source"`
	Destination   string `yaml:"destination"`
	Extension     string `yaml:"extension"`
	AggregateName string `yaml:"aggregate_name"`
}

// ExtractConfig configures the feature extractor.
type ExtractConfig struct {
	Root               string             `yaml:"root"`
	ScanName           string             `yaml:"scan_name"`
	SegmentationName   string             `yaml:"segmentation_name"`
	FeatureSuffix      string             `yaml:"feature_suffix"`
	AggregateName      string             `yaml:"aggregate_name"`
	IDColumn           string             `yaml:"id_column"`
	Engine             string             `yaml:"engine"`
	PyRadiomicsCommand string             `yaml:"pyradiomics_command"`
	EngineLogLevel     string             `yaml:"engine_log_level"`
	SQLitePath         string             `yaml:"sqlite_path"`
	Settings           radiomics.Settings `yaml:"settings"`
}

// ViewerConfig configures the slice viewer.
type ViewerConfig struct {
	PatientDir       string  `yaml:"patient_dir"`
	ScanName         string  `yaml:"scan_name"`
	SegmentationName string  `yaml:"segmentation_name"`
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	OverlayAlpha     float64 `yaml:"overlay_alpha"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Organize: OrganizeConfig{
			Source:             filepath.Join("data", "raw", "Hastalar"),
			Destination:        filepath.Join("data", "structured"),
			VolumeExtension:    ".nrrd",
			SegmentationSuffix: ".seg.nrrd",
			ScanName:           "scan.nrrd",
			SegmentationName:   "segmentation.nrrd",
		},
		Collect: CollectConfig{
			Source:        filepath.Join("data", "structured"),
			Destination:   filepath.Join("data", "Radyomik_CSV_Ciktilari"),
			Extension:     ".csv",
			AggregateName: "ALL_PATIENTS_radiomics_features.csv",
		},
		Extract: ExtractConfig{
			Root:             filepath.Join("data", "structured"),
			ScanName:         "scan.nrrd",
			SegmentationName: "segmentation.nrrd",
			FeatureSuffix:    "_radiomics_features.csv",
			AggregateName:    "ALL_PATIENTS_radiomics_features.csv",
			IDColumn:         "PatientID",
			Engine:           EngineNative,
			EngineLogLevel:   "error",
			Settings:         radiomics.DefaultSettings(),
		},
		Viewer: ViewerConfig{
			ScanName:         "scan.nrrd",
			SegmentationName: "segmentation.nrrd",
			Width:            900,
			Height:           900,
			OverlayAlpha:     0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// Load reads a YAML file over the defaults. Fields omitted from the file keep
// their default values. The result is not validated; Prepare does that once
// every override is applied.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// Prepare loads path (or the defaults), applies environment overrides, then
// override (typically command-line flags), and validates the result once so
// that an override can correct a value from the file.
func Prepare(path string, override func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Set assigns value to *field unless value is empty.
func Set(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// ApplyEnv overrides logging settings from LOG_LEVEL, DEBUG and LOG_FORMAT.
func (c *Config) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if os.Getenv("DEBUG") == "1" {
		c.Logging.Level = "debug"
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = strings.ToLower(format)
	}
}

// LogLevel parses the configured level, falling back to info.
func (c *Config) LogLevel() logger.LogLevel {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return logger.InfoLevel
	}
	return level
}

// EngineLevel parses the engine log level, falling back to error.
func (c *Config) EngineLevel() logger.LogLevel {
	level, err := logger.ParseLevel(c.Extract.EngineLogLevel)
	if err != nil {
		return logger.ErrorLevel
	}
	return level
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	var problems []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" must not be empty")
		}
	}

	require(c.Organize.Source, "organize.source")
	require(c.Organize.Destination, "organize.destination")
	require(c.Organize.VolumeExtension, "organize.volume_extension")
	require(c.Organize.SegmentationSuffix, "organize.segmentation_suffix")
	require(c.Organize.ScanName, "organize.scan_name")
	require(c.Organize.SegmentationName, "organize.segmentation_name")

	require(c.Collect.Source, "collect.source")
	require(c.Collect.Destination, "collect.destination")
	require(c.Collect.Extension, "collect.extension")
	require(c.Collect.AggregateName, "collect.aggregate_name")

	require(c.Extract.Root, "extract.root")
	require(c.Extract.ScanName, "extract.scan_name")
	require(c.Extract.SegmentationName, "extract.segmentation_name")
	require(c.Extract.FeatureSuffix, "extract.feature_suffix")
	require(c.Extract.AggregateName, "extract.aggregate_name")
	require(c.Extract.IDColumn, "extract.id_column")

	require(c.Viewer.ScanName, "viewer.scan_name")
	require(c.Viewer.SegmentationName, "viewer.segmentation_name")

	if c.Extract.Engine != EngineNative && c.Extract.Engine != EnginePyRadiomics {
		problems = append(problems, fmt.Sprintf("extract.engine must be %q or %q, got %q", EngineNative, EnginePyRadiomics, c.Extract.Engine))
	}
	if err := c.Extract.Settings.Validate(); err != nil {
		problems = append(problems, "extract.settings: "+err.Error())
	}
	if _, err := logger.ParseLevel(c.Extract.EngineLogLevel); err != nil {
		problems = append(problems, "extract.engine_log_level: "+err.Error())
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		problems = append(problems, "viewer width and height must be positive")
	}
	if c.Viewer.OverlayAlpha < 0 || c.Viewer.OverlayAlpha > 1 {
		problems = append(problems, fmt.Sprintf("viewer.overlay_alpha must be within [0, 1], got %g", c.Viewer.OverlayAlpha))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}
	if c.Logging.Format != FormatConsole && c.Logging.Format != FormatJSON {
		problems = append(problems, fmt.Sprintf("logging.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
