// Command organize-scans copies each patient's largest scan and its
// segmentation from a raw export tree into a canonical layout:
//
//	<dst>/<patient>/scan.nrrd
//	<dst>/<patient>/segmentation.nrrd
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
	flags := flag.NewFlagSet("organize-scans", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML configuration file")
	src := flags.String("src", "", "raw patient tree (default data/raw/Hastalar)")
	dst := flags.String("dst", "", "structured output tree (default data/structured)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Prepare(*configPath, func(c *config.Config) {
		config.Set(&c.Organize.Source, *src)
		config.Set(&c.Organize.Destination, *dst)
	})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log := logger.New(cfg.Logging.Format, stderr, cfg.LogLevel())

	srcPath, err := fsutil.Abs(cfg.Organize.Source)
	if err != nil {
		log.Error("Organizer", "invalid source", err, nil)
		return 1
	}
	dstPath, err := fsutil.Abs(cfg.Organize.Destination)
	if err != nil {
		log.Error("Organizer", "invalid destination", err, nil)
		return 1
	}

	manager := shutdown.NewManager(ctx, log)
	manager.Listen()
	defer manager.Shutdown()

	organizer := services.NewOrganizerService(fsutil.NewOSFS(), cfg.Organize, log)
	if _, err := organizer.Organize(manager.Context(), srcPath, dstPath); err != nil {
		log.Error("Organizer", "reorganization failed", err, map[string]interface{}{
			"source": srcPath,
		})
		return 1
	}
	return 0
}
