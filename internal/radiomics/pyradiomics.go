package radiomics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/volume"
)

// DefaultPyRadiomicsCommand is looked up on PATH when no command is given.
const DefaultPyRadiomicsCommand = "pyradiomics"

var pyImageTypes = map[ImageType]string{
	ImageOriginal:    "Original",
	ImageSquare:      "Square",
	ImageSquareRoot:  "SquareRoot",
	ImageLogarithm:   "Logarithm",
	ImageExponential: "Exponential",
	ImageGradient:    "Gradient",
	ImageWavelet:     "Wavelet",
	ImageLoG:         "LoG",
	ImageLBP2D:       "LBP2D",
	ImageLBP3D:       "LBP3D",
}

// PyRadiomicsEngine runs the pyradiomics command line tool on temporary NRRD
// copies of the inputs.
type PyRadiomicsEngine struct {
	command  string
	settings Settings
	logger   logger.Logger
}

// NewPyRadiomicsEngine creates an engine calling command, or pyradiomics
// from PATH when command is empty.
func NewPyRadiomicsEngine(command string, settings Settings, log logger.Logger) (*PyRadiomicsEngine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if command == "" {
		command = DefaultPyRadiomicsCommand
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PyRadiomicsEngine{command: command, settings: settings, logger: log}, nil
}

// Execute writes image and mask to a temporary directory, runs pyradiomics
// with JSON output and returns its result in output order.
func (e *PyRadiomicsEngine) Execute(ctx context.Context, image, mask *volume.Volume) (Result, error) {
	if image.Components != 1 {
		return nil, fmt.Errorf("%w (image has %d)", ErrMultiComponent, image.Components)
	}

	dir, err := os.MkdirTemp("", "radiomics-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	imagePath := filepath.Join(dir, "image.nrrd")
	maskPath := filepath.Join(dir, "mask.nrrd")
	paramPath := filepath.Join(dir, "params.yaml")

	if err := volume.WriteFile(imagePath, image, volume.EncodingGzip); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := volume.WriteFile(maskPath, mask, volume.EncodingGzip); err != nil {
		return nil, fmt.Errorf("failed to write mask: %w", err)
	}
	params, err := e.paramFile()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(paramPath, params, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write parameter file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, imagePath, maskPath, "--param", paramPath, "--format", "json")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	e.logStderr(&stderr)
	if runErr != nil {
		return nil, fmt.Errorf("pyradiomics %q failed: %w", e.command, runErr)
	}

	result, err := parseOutput(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pyradiomics output: %w", err)
	}
	return result, nil
}

// parseOutput decodes the JSON row and keeps only diagnostics and feature
// keys. The command line tool adds case columns such as Image and Mask.
func parseOutput(r io.Reader) (Result, error) {
	decoded, err := decodeOrdered(r)
	if err != nil {
		return nil, err
	}
	result := make(Result, 0, len(decoded))
	for _, e := range decoded {
		if e.IsDiagnostic() || isFeatureKey(e.Key) {
			result = append(result, e)
		}
	}
	return result, nil
}

// isFeatureKey reports whether key has the <image type>_<class>_<feature>
// shape with a known feature class.
func isFeatureKey(key string) bool {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return false
	}
	return FeatureClass(parts[1]).valid()
}

// paramFile renders the settings in pyradiomics parameter file layout.
func (e *PyRadiomicsEngine) paramFile() ([]byte, error) {
	imageTypes := make(map[string]map[string]interface{})
	for _, it := range e.settings.ImageTypes {
		imageTypes[pyImageTypes[it]] = map[string]interface{}{}
	}
	classes := make(map[string]interface{})
	for _, fc := range e.settings.FeatureClasses {
		classes[string(fc)] = nil
	}

	doc := map[string]interface{}{
		"imageType":    imageTypes,
		"featureClass": classes,
		"setting": map[string]interface{}{
			"label":    e.settings.Label,
			"force2D":  e.settings.Force2D,
			"binWidth": e.settings.BinWidth,
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameter file: %w", err)
	}
	return data, nil
}

func (e *PyRadiomicsEngine) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e.logger.Debug("pyradiomics", line, nil)
	}
}

// decodeOrdered reads a JSON object, or the first object of an array,
// keeping key order.
func decodeOrdered(r io.Reader) (Result, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == json.Delim('[') {
		if tok, err = dec.Token(); err != nil {
			return nil, err
		}
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var result Result
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		result = append(result, Entry{Key: key, Value: jsonValue(raw)})
	}
	return result, nil
}

// jsonValue maps numbers to float64 and strings to string. Anything else is
// kept as its JSON text.
func jsonValue(raw json.RawMessage) interface{} {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string:
		return t
	default:
		return string(raw)
	}
}
