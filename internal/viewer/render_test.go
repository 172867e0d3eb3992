package viewer

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomics-toolkit/internal/volume"
)

// rampColormap maps level l to (l, 0, 255-l) and remembers its input.
type rampColormap struct {
	levels []byte
	err    error
}

func (c *rampColormap) Apply(levels []byte, cols, rows int) (*image.RGBA, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.levels = append([]byte(nil), levels...)
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, l := range levels {
		copy(img.Pix[i*4:], []byte{l, 0, 255 - l, 255})
	}
	return img, nil
}

func renderFixture(t *testing.T, maskComponents int) (*volume.Volume, *volume.Volume) {
	t.Helper()
	scan, err := volume.New(2, 2, 3, 1, volume.Float32)
	require.NoError(t, err)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			scan.Set(x, y, 0, 0, -500)
			scan.Set(x, y, 1, 0, float64(10*(y*2+x)))
			scan.Set(x, y, 2, 0, 7)
		}
	}
	mask, err := volume.New(2, 2, 3, maskComponents, volume.Uint8)
	require.NoError(t, err)
	return scan, mask
}

func pixels(img *image.RGBA) []color.RGBA {
	var out []color.RGBA
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, img.RGBAAt(x, y))
		}
	}
	return out
}

func gray(l uint8) color.RGBA { return color.RGBA{R: l, G: l, B: l, A: 255} }

func TestRenderGrayscaleAutoscalesPerSlice(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	r, err := NewRenderer(scan, mask, &rampColormap{}, DefaultOverlayAlpha)
	require.NoError(t, err)

	state, err := NewState(3)
	require.NoError(t, err)

	img, err := r.Render(state)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	if diff := cmp.Diff([]color.RGBA{gray(0), gray(85), gray(170), gray(255)}, pixels(img)); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}

	// a constant slice renders black
	state.Advance()
	img, err = r.Render(state)
	require.NoError(t, err)
	assert.Equal(t, []color.RGBA{gray(0), gray(0), gray(0), gray(0)}, pixels(img))
}

func TestRenderLabelOverlay(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	mask.Set(1, 0, 1, 0, 1)
	mask.Set(1, 1, 1, 0, 2)

	cmap := &rampColormap{}
	r, err := NewRenderer(scan, mask, cmap, DefaultOverlayAlpha)
	require.NoError(t, err)
	state, err := NewState(3)
	require.NoError(t, err)

	img, err := r.Render(state)
	require.NoError(t, err)

	// labels normalized over non-zero values only
	assert.Equal(t, []byte{0, 0, 0, 255}, cmap.levels)
	want := []color.RGBA{
		gray(0),
		{R: 43, G: 43, B: 170, A: 255},
		gray(170),
		{R: 255, G: 128, B: 128, A: 255},
	}
	if diff := cmp.Diff(want, pixels(img)); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}

	state.ToggleMask()
	img, err = r.Render(state)
	require.NoError(t, err)
	assert.Equal(t, []color.RGBA{gray(0), gray(85), gray(170), gray(255)}, pixels(img))
}

func TestRenderEmptyMaskSliceSkipsColormap(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	cmap := &rampColormap{err: errors.New("should not be called")}
	r, err := NewRenderer(scan, mask, cmap, DefaultOverlayAlpha)
	require.NoError(t, err)
	state, err := NewState(3)
	require.NoError(t, err)

	_, err = r.Render(state)
	assert.NoError(t, err)
}

func TestRenderColormapFailure(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	mask.Set(0, 0, 1, 0, 1)
	r, err := NewRenderer(scan, mask, &rampColormap{err: errors.New("boom")}, DefaultOverlayAlpha)
	require.NoError(t, err)
	state, err := NewState(3)
	require.NoError(t, err)

	_, err = r.Render(state)
	assert.ErrorContains(t, err, "boom")
}

func TestRenderCompositeOverlay(t *testing.T) {
	scan, mask := renderFixture(t, 4)
	mask.Set(1, 0, 1, 0, 1)
	mask.Set(1, 1, 1, 1, 1)
	mask.Set(1, 1, 1, 2, 1)
	// only the fourth channel: blended, but adds no color
	mask.Set(0, 1, 1, 3, 1)

	r, err := NewRenderer(scan, mask, &rampColormap{err: errors.New("unused")}, DefaultOverlayAlpha)
	require.NoError(t, err)
	state, err := NewState(3)
	require.NoError(t, err)

	img, err := r.Render(state)
	require.NoError(t, err)
	want := []color.RGBA{
		gray(0),
		{R: 170, G: 43, B: 43, A: 255},
		gray(85),
		{R: 128, G: 255, B: 255, A: 255},
	}
	if diff := cmp.Diff(want, pixels(img)); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderScaled(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	r, err := NewRenderer(scan, mask, &rampColormap{}, DefaultOverlayAlpha)
	require.NoError(t, err)
	state, err := NewState(3)
	require.NoError(t, err)

	img, err := r.RenderScaled(state, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, gray(0), img.RGBAAt(1, 1))
	assert.Equal(t, gray(85), img.RGBAAt(2, 1))
	assert.Equal(t, gray(255), img.RGBAAt(3, 3))

	img, err = r.RenderScaled(state, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, r.Bounds(), img.Bounds())
}

func TestNewRendererRejects(t *testing.T) {
	scan, mask := renderFixture(t, 1)
	other, err := volume.New(2, 2, 4, 1, volume.Uint8)
	require.NoError(t, err)

	_, err = NewRenderer(scan, other, &rampColormap{}, 0.5)
	assert.Error(t, err)
	_, err = NewRenderer(scan, mask, nil, 0.5)
	assert.Error(t, err)
	_, err = NewRenderer(scan, mask, &rampColormap{}, 1.5)
	assert.Error(t, err)
	_, err = NewRenderer(nil, mask, &rampColormap{}, 0.5)
	assert.Error(t, err)
}
