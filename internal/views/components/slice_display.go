package components

import (
	"image"
	"image/color"

	"radiomics-toolkit/internal/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const (
	SliceAreaWidth  = 512
	SliceAreaHeight = 512
)

// SliceDisplay shows one rendered slice and reports wheel and hover events
// in voxel coordinates.
type SliceDisplay struct {
	widget.BaseWidget

	image      *canvas.Image
	background *canvas.Rectangle
	cols, rows int

	scrollHandler func(up bool)
	hoverHandler  func(x, y int, inside bool)
}

var (
	_ fyne.Scrollable   = (*SliceDisplay)(nil)
	_ desktop.Hoverable = (*SliceDisplay)(nil)
)

// NewSliceDisplay creates a display for cols x rows slices
func NewSliceDisplay(cols, rows int) *SliceDisplay {
	sd := &SliceDisplay{cols: cols, rows: rows}

	sd.background = canvas.NewRectangle(color.Black)
	sd.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, cols, rows)))
	sd.image.FillMode = canvas.ImageFillContain
	sd.image.ScaleMode = canvas.ImageScalePixels
	sd.image.SetMinSize(fyne.NewSize(SliceAreaWidth, SliceAreaHeight))

	sd.ExtendBaseWidget(sd)
	return sd
}

// SetImage replaces the displayed slice
func (sd *SliceDisplay) SetImage(img image.Image) {
	sd.image.Image = img
	sd.image.Refresh()
}

// SetScrollHandler sets the handler for wheel steps
func (sd *SliceDisplay) SetScrollHandler(handler func(up bool)) {
	sd.scrollHandler = handler
}

// SetHoverHandler sets the handler for pointer movement
func (sd *SliceDisplay) SetHoverHandler(handler func(x, y int, inside bool)) {
	sd.hoverHandler = handler
}

func (sd *SliceDisplay) Scrolled(ev *fyne.ScrollEvent) {
	if sd.scrollHandler == nil || ev.Scrolled.DY == 0 {
		return
	}
	sd.scrollHandler(ev.Scrolled.DY > 0)
}

func (sd *SliceDisplay) MouseIn(ev *desktop.MouseEvent) {
	sd.hover(ev.Position)
}

func (sd *SliceDisplay) MouseMoved(ev *desktop.MouseEvent) {
	sd.hover(ev.Position)
}

func (sd *SliceDisplay) MouseOut() {
	if sd.hoverHandler != nil {
		sd.hoverHandler(0, 0, false)
	}
}

func (sd *SliceDisplay) hover(pos fyne.Position) {
	if sd.hoverHandler == nil {
		return
	}
	size := sd.Size()
	x, y, inside := viewer.PointerToVoxel(pos.X, pos.Y, size.Width, size.Height, sd.cols, sd.rows)
	sd.hoverHandler(x, y, inside)
}

// CreateRenderer creates the renderer for SliceDisplay
func (sd *SliceDisplay) CreateRenderer() fyne.WidgetRenderer {
	return &sliceDisplayRenderer{
		display: sd,
		objects: []fyne.CanvasObject{sd.background, sd.image},
	}
}

type sliceDisplayRenderer struct {
	display *SliceDisplay
	objects []fyne.CanvasObject
}

func (r *sliceDisplayRenderer) Layout(size fyne.Size) {
	for _, obj := range r.objects {
		obj.Resize(size)
		obj.Move(fyne.NewPos(0, 0))
	}
}

func (r *sliceDisplayRenderer) MinSize() fyne.Size {
	return r.display.image.MinSize()
}

func (r *sliceDisplayRenderer) Refresh() {
	r.Layout(r.display.Size())
	for _, obj := range r.objects {
		obj.Refresh()
	}
}

func (r *sliceDisplayRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *sliceDisplayRenderer) Destroy() {}
