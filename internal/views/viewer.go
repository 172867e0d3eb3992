// Package views builds the fyne window for the slice viewer.
package views

import (
	"image"

	"radiomics-toolkit/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
)

// ViewerWindow lays out the slice display above the info panel and forwards
// input to the handlers set by the caller.
type ViewerWindow struct {
	window  fyne.Window
	display *components.SliceDisplay
	info    *components.InfoPanel

	keyHandler func(string)
}

// NewViewerWindow creates the viewer layout inside window for cols x rows slices
func NewViewerWindow(window fyne.Window, cols, rows int) *ViewerWindow {
	vw := &ViewerWindow{
		window:  window,
		display: components.NewSliceDisplay(cols, rows),
		info:    components.NewInfoPanel(),
	}

	vw.buildLayout()
	vw.setupEventHandlers()
	return vw
}

func (vw *ViewerWindow) buildLayout() {
	vw.window.SetContent(container.NewBorder(
		nil,                    // top
		vw.info.GetContainer(), // bottom
		nil,                    // left
		nil,                    // right
		vw.display,             // center
	))
}

func (vw *ViewerWindow) setupEventHandlers() {
	vw.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if vw.keyHandler != nil {
			vw.keyHandler(string(ev.Name))
		}
	})
}

// SetKeyHandler sets the handler for key presses, called with fyne key names
func (vw *ViewerWindow) SetKeyHandler(handler func(string)) {
	vw.keyHandler = handler
}

// SetScrollHandler sets the handler for wheel steps over the slice
func (vw *ViewerWindow) SetScrollHandler(handler func(up bool)) {
	vw.display.SetScrollHandler(handler)
}

// SetHoverHandler sets the handler for pointer movement over the slice
func (vw *ViewerWindow) SetHoverHandler(handler func(x, y int, inside bool)) {
	vw.display.SetHoverHandler(handler)
}

// ShowImage updates the slice display
func (vw *ViewerWindow) ShowImage(img image.Image) {
	fyne.Do(func() {
		vw.display.SetImage(img)
	})
}

// SetTitle updates the slice heading
func (vw *ViewerWindow) SetTitle(title string) {
	fyne.Do(func() {
		vw.info.SetTitle(title)
	})
}

// SetReadout updates the voxel readout
func (vw *ViewerWindow) SetReadout(text string) {
	fyne.Do(func() {
		vw.info.SetReadout(text)
	})
}

// ShowAndRun blocks until the window is closed.
func (vw *ViewerWindow) ShowAndRun() {
	vw.window.ShowAndRun()
}
