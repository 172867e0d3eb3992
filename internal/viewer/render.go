package viewer

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"radiomics-toolkit/internal/volume"
)

// DefaultOverlayAlpha is the opacity of mask overlays.
const DefaultOverlayAlpha = 0.5

// Colormap turns a cols x rows plane of 8-bit levels into colors.
type Colormap interface {
	Apply(levels []byte, cols, rows int) (*image.RGBA, error)
}

// Renderer draws one slice of a scan with its mask overlay.
type Renderer struct {
	scan     *volume.Volume
	mask     *volume.Volume
	colormap Colormap
	alpha    float64
}

// NewRenderer checks that scan and mask share a voxel grid. colormap colors
// single-label masks.
func NewRenderer(scan, mask *volume.Volume, colormap Colormap, alpha float64) (*Renderer, error) {
	if scan == nil || mask == nil {
		return nil, fmt.Errorf("renderer needs both a scan and a mask")
	}
	if scan.Size != mask.Size {
		return nil, fmt.Errorf("scan size %v does not match mask size %v", scan.Size, mask.Size)
	}
	if colormap == nil {
		return nil, fmt.Errorf("renderer needs a colormap")
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("overlay alpha %g outside [0, 1]", alpha)
	}
	return &Renderer{scan: scan, mask: mask, colormap: colormap, alpha: alpha}, nil
}

// Bounds is the size of a rendered slice in pixels.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.scan.Size[0], r.scan.Size[1])
}

// Render draws the current slice of state from scratch.
func (r *Renderer) Render(state *State) (*image.RGBA, error) {
	z := state.Slice()
	if z < 0 || z >= r.scan.Slices() {
		return nil, fmt.Errorf("slice %d outside [0, %d)", z, r.scan.Slices())
	}

	cols, rows := r.scan.Size[0], r.scan.Size[1]
	out := grayscale(r.scan.Slice(z, 0), cols, rows)
	if !state.MaskVisible() {
		return out, nil
	}

	if r.mask.Components > 1 {
		r.compositeOverlay(out, z)
		return out, nil
	}
	if err := r.labelOverlay(out, z); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderScaled renders and enlarges the slice by the largest whole factor
// that fits width x height, keeping voxels square and sharp.
func (r *Renderer) RenderScaled(state *State, width, height int) (*image.RGBA, error) {
	img, err := r.Render(state)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	factor := width / b.Dx()
	if f := height / b.Dy(); f < factor {
		factor = f
	}
	if factor <= 1 {
		return img, nil
	}

	scaled := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)
	return scaled, nil
}

// grayscale maps values linearly from the slice minimum (black) to maximum
// (white). A constant slice is black.
func grayscale(values []float64, cols, rows int) *image.RGBA {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, v := range values {
		level := uint8(0)
		if hi > lo {
			level = uint8(math.Round((v - lo) / (hi - lo) * 255))
		}
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = level, level, level, 255
	}
	return img
}

// labelOverlay colors non-zero labels with the colormap, normalized over the
// non-zero values of the slice. Background stays transparent.
func (r *Renderer) labelOverlay(dst *image.RGBA, z int) error {
	cols, rows := r.mask.Size[0], r.mask.Size[1]
	values := r.mask.Slice(z, 0)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v != 0 {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil
	}

	levels := make([]byte, len(values))
	for i, v := range values {
		if v != 0 && hi > lo {
			levels[i] = uint8(math.Round((v - lo) / (hi - lo) * 255))
		}
	}

	colored, err := r.colormap.Apply(levels, cols, rows)
	if err != nil {
		return fmt.Errorf("failed to color mask: %w", err)
	}
	if colored.Bounds().Dx() != cols || colored.Bounds().Dy() != rows {
		return fmt.Errorf("colormap returned %v for a %dx%d slice", colored.Bounds(), cols, rows)
	}

	for i, v := range values {
		if v != 0 {
			blend(dst.Pix[i*4:i*4+4], colored.Pix[i*4:i*4+4], r.alpha)
		}
	}
	return nil
}

// compositeOverlay shows the first three mask channels as red, green and blue.
// Channel values are read as fractions in [0, 1]. Voxels where every channel
// is zero are left untouched.
func (r *Renderer) compositeOverlay(dst *image.RGBA, z int) {
	cols, rows := r.mask.Size[0], r.mask.Size[1]
	channels := r.mask.Components

	planes := make([][]float64, channels)
	for c := range planes {
		planes[c] = r.mask.Slice(z, c)
	}

	var color [4]byte
	for i := 0; i < cols*rows; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += planes[c][i]
		}
		if sum == 0 {
			continue
		}

		color = [4]byte{0, 0, 0, 255}
		for c := 0; c < channels && c < 3; c++ {
			color[c] = uint8(math.Round(clamp01(planes[c][i]) * 255))
		}
		blend(dst.Pix[i*4:i*4+4], color[:], r.alpha)
	}
}

// blend mixes src over dst with the given opacity. dst stays opaque.
func blend(dst, src []byte, alpha float64) {
	for c := 0; c < 3; c++ {
		dst[c] = uint8(math.Round(float64(dst[c])*(1-alpha) + float64(src[c])*alpha))
	}
	dst[3] = 255
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
