// Command collect-csv gathers the per-patient feature CSVs and the aggregate
// table from a structured tree into a separate output tree.
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
	"radiomics-toolkit/internal/services"
	"radiomics-toolkit/internal/shutdown"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("collect-csv", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML configuration file")
	src := flags.String("src", "", "structured tree holding feature CSVs (default data/structured)")
	dst := flags.String("dst", "", "output tree (default data/Radyomik_CSV_Ciktilari)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Prepare(*configPath, func(c *config.Config) {
		config.Set(&c.Collect.Source, *src)
		config.Set(&c.Collect.Destination, *dst)
	})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log := logger.New(cfg.Logging.Format, stderr, cfg.LogLevel())

	srcPath, err := fsutil.Abs(cfg.Collect.Source)
	if err != nil {
		log.Error("Collector", "invalid source", err, nil)
		return 1
	}
	dstPath, err := fsutil.Abs(cfg.Collect.Destination)
	if err != nil {
		log.Error("Collector", "invalid destination", err, nil)
		return 1
	}

	manager := shutdown.NewManager(ctx, log)
	manager.Listen()
	defer manager.Shutdown()

	collector := services.NewCollectorService(fsutil.NewOSFS(), cfg.Collect, log)
	if _, err := collector.Collect(manager.Context(), srcPath, dstPath); err != nil {
		log.Error("Collector", "collection failed", err, map[string]interface{}{
			"source": srcPath,
		})
		return 1
	}
	return 0
}
