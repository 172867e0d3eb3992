// Package conversion moves pixel data between gocv matrices and Go images.
package conversion

import (
	"fmt"
	"image"

	"radiomics-toolkit/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToImage converts an 8-bit Mat to a Go image. One channel gives
// *image.Gray, three (BGR) and four (BGRA) channels give *image.RGBA.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	switch src.Channels() {
	case 1:
		return matToGray(src)
	case 3, 4:
		return matToRGBA(src)
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// GrayToMat wraps row-major 8-bit levels into a single-channel Mat.
func GrayToMat(levels []byte, cols, rows int) (*safe.Mat, error) {
	return safe.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, levels, "GrayToMat")
}

func matToGray(src *safe.Mat) (*image.Gray, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pixel access failed: %w", err)
	}

	rows, cols := src.Rows(), src.Cols()
	if len(data) < rows*cols {
		return nil, fmt.Errorf("short pixel buffer: %d bytes for %dx%d", len(data), cols, rows)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data[:rows*cols])
	return img, nil
}

// matToRGBA swaps BGR(A) order to RGBA. Three-channel input is opaque.
func matToRGBA(src *safe.Mat) (*image.RGBA, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pixel access failed: %w", err)
	}

	rows, cols, channels := src.Rows(), src.Cols(), src.Channels()
	if len(data) < rows*cols*channels {
		return nil, fmt.Errorf("short pixel buffer: %d bytes for %dx%dx%d", len(data), cols, rows, channels)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows*cols; i++ {
		in := data[i*channels : i*channels+channels]
		out := img.Pix[i*4 : i*4+4]
		out[0], out[1], out[2] = in[2], in[1], in[0]
		out[3] = 255
		if channels == 4 {
			out[3] = in[3]
		}
	}

	return img, nil
}
