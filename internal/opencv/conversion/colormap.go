package conversion

import (
	"fmt"
	"image"

	"radiomics-toolkit/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Colormap maps 8-bit levels through an OpenCV colormap.
type Colormap struct {
	kind gocv.ColormapTypes
}

// NewAutumnColormap returns the red-to-yellow colormap used for label overlays.
func NewAutumnColormap() *Colormap {
	return &Colormap{kind: gocv.ColormapAutumn}
}

// Apply colors a cols x rows plane of levels. The result is opaque; callers
// decide which pixels to blend.
func (c *Colormap) Apply(levels []byte, cols, rows int) (*image.RGBA, error) {
	src, err := GrayToMat(levels, cols, rows)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := ApplyColormap(src, c.kind)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	img, err := MatToImage(dst)
	if err != nil {
		return nil, err
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("colormap produced %T, want *image.RGBA", img)
	}
	return rgba, nil
}

// ApplyColormap runs gocv.ApplyColorMap on a single-channel Mat and returns a
// new BGR Mat owned by the caller.
func ApplyColormap(src *safe.Mat, kind gocv.ColormapTypes) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "colormap"); err != nil {
		return nil, err
	}
	if src.Channels() != 1 {
		return nil, fmt.Errorf("colormap needs a single channel Mat, got %d channels", src.Channels())
	}

	out := gocv.NewMat()
	defer out.Close()

	gocv.ApplyColorMap(src.GetMat(), &out, kind)
	if out.Empty() {
		return nil, fmt.Errorf("colormap produced an empty Mat")
	}

	return safe.NewMatFromMat(out, "colormap")
}
