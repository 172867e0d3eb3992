// Command mask-viewer browses one patient's scan slice by slice with the
// segmentation drawn on top.
//
//	mask-viewer -patient data/structured/<patient>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/controllers"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/opencv/conversion"
	"radiomics-toolkit/internal/services"
	"radiomics-toolkit/internal/shutdown"
	"radiomics-toolkit/internal/viewer"
	"radiomics-toolkit/internal/views"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName = "Mask Viewer"
	AppID   = "com.radiomics-toolkit.mask-viewer"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("mask-viewer", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML configuration file")
	patient := flags.String("patient", "", "patient directory holding scan.nrrd and segmentation.nrrd")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *patient == "" && flags.NArg() > 0 {
		*patient = flags.Arg(0)
	}

	cfg, err := config.Prepare(*configPath, func(c *config.Config) {
		config.Set(&c.Viewer.PatientDir, *patient)
	})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if cfg.Viewer.PatientDir == "" {
		fmt.Fprintln(stderr, "ERROR: no patient directory given (use -patient)")
		return 1
	}
	log := logger.New(cfg.Logging.Format, stderr, cfg.LogLevel())

	fmt.Fprintln(stdout, "--- Starting interactive viewer ---")

	dir, err := fsutil.Abs(cfg.Viewer.PatientDir)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	inputs, err := services.NewViewerService(fsutil.NewOSFS(), cfg.Viewer, log).Load(dir)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if inputs.MultiChannel() {
		fmt.Fprintf(stdout, "\n[NOTICE] The mask is multi-channel (%d channels); each channel is drawn as a color.\n", inputs.Mask.Components)
	}
	fmt.Fprintln(stdout, "\n--- Viewer controls ---")
	for _, line := range viewer.Controls {
		fmt.Fprintln(stdout, " - "+line)
	}

	renderer, err := viewer.NewRenderer(inputs.Scan, inputs.Mask, conversion.NewAutumnColormap(), cfg.Viewer.OverlayAlpha)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	controller, err := controllers.NewViewerController(inputs.Scan, inputs.Mask, renderer, stdout, log)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(fmt.Sprintf("%s - %s", AppName, inputs.ScanPath))
	window.Resize(fyne.NewSize(float32(cfg.Viewer.Width), float32(cfg.Viewer.Height)))
	window.CenterOnScreen()

	view := views.NewViewerWindow(window, inputs.Scan.Size[0], inputs.Scan.Size[1])
	view.SetKeyHandler(controller.KeyPressed)
	view.SetScrollHandler(controller.Scrolled)
	view.SetHoverHandler(controller.PointerMoved)

	controller.SetDisplay(view)
	controller.SetRenderSize(cfg.Viewer.Width, cfg.Viewer.Height)
	controller.Start()

	manager := shutdown.NewManager(ctx, log)
	manager.Listen()
	defer manager.Shutdown()

	closed := make(chan struct{})
	go func() {
		select {
		case <-manager.Done():
			fyne.Do(window.Close)
		case <-closed:
		}
	}()

	view.ShowAndRun()
	close(closed)
	log.Info("ViewerController", "viewer closed", nil)
	return 0
}
