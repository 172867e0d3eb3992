// Command extract-features computes radiomics features for every patient of
// a structured tree. Each patient gets <id>_radiomics_features.csv next to
// its volumes and the root gets ALL_PATIENTS_radiomics_features.csv.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/radiomics"
	"radiomics-toolkit/internal/services"
	"radiomics-toolkit/internal/shutdown"
	"radiomics-toolkit/internal/store"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("extract-features", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML configuration file")
	root := flags.String("root", "", "structured patient tree (default data/structured)")
	engine := flags.String("engine", "", "feature engine: native or pyradiomics (default native)")
	sqlitePath := flags.String("sqlite", "", "also store features in this SQLite database")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Prepare(*configPath, func(c *config.Config) {
		config.Set(&c.Extract.Root, *root)
		config.Set(&c.Extract.Engine, *engine)
		config.Set(&c.Extract.SQLitePath, *sqlitePath)
	})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log := logger.New(cfg.Logging.Format, stderr, cfg.LogLevel())

	rootPath, err := fsutil.Abs(cfg.Extract.Root)
	if err != nil {
		log.Error("Extractor", "invalid root", err, nil)
		return 1
	}

	featureEngine, err := newEngine(cfg, log.Scoped(cfg.EngineLevel()))
	if err != nil {
		log.Error("Extractor", "engine setup failed", err, map[string]interface{}{
			"engine": cfg.Extract.Engine,
		})
		return 1
	}

	manager := shutdown.NewManager(ctx, log)
	manager.Listen()
	defer manager.Shutdown()

	extractor := services.NewExtractionService(fsutil.NewOSFS(), featureEngine, cfg.Extract, log)
	if cfg.Extract.SQLitePath != "" {
		featureStore, err := store.NewFeatureStore(cfg.Extract.SQLitePath)
		if err != nil {
			// the CSV outputs do not depend on the store
			log.Warning("Extractor", "feature store unavailable", map[string]interface{}{
				"path":  cfg.Extract.SQLitePath,
				"error": err.Error(),
			})
		} else {
			manager.Register(shutdown.Func(func() { featureStore.Close() }))
			extractor.SetSink(featureStore)
		}
	}

	if _, err := extractor.Extract(manager.Context(), rootPath); err != nil {
		log.Error("Extractor", "extraction failed", err, map[string]interface{}{
			"root": rootPath,
		})
		return 1
	}
	return 0
}

func newEngine(cfg *config.Config, log logger.Logger) (radiomics.Engine, error) {
	switch cfg.Extract.Engine {
	case config.EnginePyRadiomics:
		command := cfg.Extract.PyRadiomicsCommand
		if command == "" {
			command = radiomics.DefaultPyRadiomicsCommand
		}
		return radiomics.NewPyRadiomicsEngine(command, cfg.Extract.Settings, log)
	default:
		return radiomics.NewNativeEngine(cfg.Extract.Settings, log)
	}
}
