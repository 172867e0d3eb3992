package controllers

import (
	"fmt"
	"image"
	"io"
	"sync"

	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/viewer"
	"radiomics-toolkit/internal/volume"
)

// Display is the surface the controller draws on.
type Display interface {
	ShowImage(img image.Image)
	SetTitle(title string)
	SetReadout(text string)
}

// ViewerController applies input events to the viewer state and redraws the
// whole slice after each one.
type ViewerController struct {
	scan     *volume.Volume
	mask     *volume.Volume
	state    *viewer.State
	renderer *viewer.Renderer
	logger   logger.Logger

	mu        sync.Mutex
	width     int
	height    int
	display   Display
	console   io.Writer
	lastProbe viewer.Readout
	hasProbe  bool
}

// NewViewerController creates a new viewer controller
func NewViewerController(scan, mask *volume.Volume, renderer *viewer.Renderer, console io.Writer, log logger.Logger) (*ViewerController, error) {
	state, err := viewer.NewState(scan.Slices())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	if console == nil {
		console = io.Discard
	}
	return &ViewerController{
		scan:     scan,
		mask:     mask,
		state:    state,
		renderer: renderer,
		logger:   log,
		console:  console,
	}, nil
}

// SetDisplay associates the display with this controller
func (vc *ViewerController) SetDisplay(display Display) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.display = display
}

// SetRenderSize sets the pixel area slices are enlarged to fit. Zero keeps
// one pixel per voxel.
func (vc *ViewerController) SetRenderSize(width, height int) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.width, vc.height = width, height
}

func (vc *ViewerController) State() *viewer.State {
	return vc.state
}

// Start draws the initial slice.
func (vc *ViewerController) Start() {
	vc.logger.Info("ViewerController", "viewer started", map[string]interface{}{
		"slices":        vc.state.Slices(),
		"mask_channels": vc.mask.Components,
		"start_slice":   vc.state.Slice() + 1,
	})
	vc.redraw()
}

// KeyPressed handles a named key. Unbound keys still redraw.
func (vc *ViewerController) KeyPressed(key string) {
	if !vc.state.HandleKey(key) {
		vc.logger.Debug("ViewerController", "unbound key", map[string]interface{}{"key": key})
	}
	vc.redraw()
}

// Scrolled handles a wheel step.
func (vc *ViewerController) Scrolled(up bool) {
	vc.state.HandleScroll(up)
	vc.redraw()
}

// PointerMoved probes the voxel under the pointer on the current slice. A
// pointer outside the image keeps the previous readout.
func (vc *ViewerController) PointerMoved(x, y int, inside bool) {
	if !inside {
		return
	}

	readout, ok := viewer.Probe(vc.scan, vc.mask, vc.state.Slice(), x, y)
	if !ok {
		return
	}
	vc.state.SetReadout(readout.Text())

	vc.mu.Lock()
	changed := !vc.hasProbe || !readout.SameVoxel(vc.lastProbe)
	vc.lastProbe, vc.hasProbe = readout, true
	console := vc.console
	vc.mu.Unlock()

	if changed {
		fmt.Fprintln(console, readout.Line())
	}
	vc.redraw()
}

// Render draws the current state without a display.
func (vc *ViewerController) Render() (image.Image, error) {
	return vc.renderer.Render(vc.state)
}

func (vc *ViewerController) redraw() {
	vc.mu.Lock()
	width, height := vc.width, vc.height
	vc.mu.Unlock()

	img, err := vc.renderer.RenderScaled(vc.state, width, height)
	if err != nil {
		vc.handleError("render failed", err)
		return
	}

	vc.mu.Lock()
	display := vc.display
	vc.mu.Unlock()
	if display == nil {
		return
	}

	display.ShowImage(img)
	display.SetTitle(vc.state.Title())
	display.SetReadout(vc.state.Readout())
}

// handleError handles viewer errors with consistent logging
func (vc *ViewerController) handleError(message string, err error) {
	vc.logger.Error("ViewerController", message, err, map[string]interface{}{
		"slice": vc.state.Slice() + 1,
	})
}
