package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"radiomics-toolkit/internal/volume"
)

// Readout is the scan and mask value under the pointer.
type Readout struct {
	X, Y, Z int
	Scan    float64
	Mask    []float64
}

// Probe samples scan and mask at voxel (x, y) of slice z. ok is false when
// the voxel lies outside either volume.
func Probe(scan, mask *volume.Volume, z, x, y int) (Readout, bool) {
	if !scan.Contains(x, y, z) || !mask.Contains(x, y, z) {
		return Readout{}, false
	}
	return Readout{
		X:    x,
		Y:    y,
		Z:    z,
		Scan: scan.At(x, y, z, 0),
		Mask: append([]float64(nil), mask.Voxel(x, y, z)...),
	}, true
}

// SameVoxel reports whether r and o point at the same voxel.
func (r Readout) SameVoxel(o Readout) bool {
	return r.X == o.X && r.Y == o.Y && r.Z == o.Z
}

// MaskNonZero reports whether any mask channel is set.
func (r Readout) MaskNonZero() bool {
	for _, v := range r.Mask {
		if v != 0 {
			return true
		}
	}
	return false
}

// MaskText renders a scalar mask as a number and a multi-channel mask as a
// bracketed list.
func (r Readout) MaskText() string {
	if len(r.Mask) == 1 {
		return formatValue(r.Mask[0])
	}
	parts := make([]string, len(r.Mask))
	for i, v := range r.Mask {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Text is the multi-line on-screen readout.
func (r Readout) Text() string {
	return fmt.Sprintf("Coord(Y,X): (%d, %d)\nScan Value: %.2f\nMask Value: %s", r.Y, r.X, r.Scan, r.MaskText())
}

// Line is the single-line console form of Text.
func (r Readout) Line() string {
	return fmt.Sprintf("Slice %d | Coord(Y,X): (%d, %d) | Scan Value: %.2f | Mask Value: %s",
		r.Z+1, r.Y, r.X, r.Scan, r.MaskText())
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// PointerToVoxel maps a pointer position inside a width x height area to the
// voxel of a cols x rows slice drawn centred with its aspect ratio kept.
func PointerToVoxel(px, py, width, height float32, cols, rows int) (int, int, bool) {
	if cols <= 0 || rows <= 0 || width <= 0 || height <= 0 {
		return 0, 0, false
	}

	scale := width / float32(cols)
	if s := height / float32(rows); s < scale {
		scale = s
	}
	offX := (width - scale*float32(cols)) / 2
	offY := (height - scale*float32(rows)) / 2

	fx := (px - offX) / scale
	fy := (py - offY) / scale
	if fx < 0 || fy < 0 {
		return 0, 0, false
	}
	x, y := int(fx), int(fy)
	if x >= cols || y >= rows {
		return 0, 0, false
	}
	return x, y, true
}
