package volume

import (
	"fmt"
	"math"
)

// castValue converts a value the way a static cast does: floats pass through
// (rounded to float32 precision when needed), integers truncate toward zero
// and saturate at the bounds of the target type. NaN becomes 0 for integers.
func castValue(value float64, target PixelType) float64 {
	switch target {
	case Float64:
		return value
	case Float32:
		return float64(float32(value))
	}
	if math.IsNaN(value) {
		return 0
	}
	lo, hi := target.bounds()
	value = math.Trunc(value)
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// SelectComponent extracts one component of a multi-component volume into a
// new single-component volume of the given pixel type.
func SelectComponent(v *Volume, index int, target PixelType) (*Volume, error) {
	if index < 0 || index >= v.Components {
		return nil, fmt.Errorf("%w: %d for %d components", ErrComponentOutside, index, v.Components)
	}

	out := &Volume{
		Size:       v.Size,
		Components: 1,
		Spacing:    v.Spacing,
		Origin:     v.Origin,
		Direction:  v.Direction,
		PixelType:  target,
		Data:       make([]float64, v.Voxels()),
	}
	for i := range out.Data {
		out.Data[i] = castValue(v.Data[i*v.Components+index], target)
	}
	return out, nil
}

// Cast returns a copy of v with every component converted to target.
func Cast(v *Volume, target PixelType) *Volume {
	out := v.Clone()
	out.PixelType = target
	for i, value := range out.Data {
		out.Data[i] = castValue(value, target)
	}
	return out
}
