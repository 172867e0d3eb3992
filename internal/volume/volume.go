// Package volume holds 3D scan and segmentation volumes in memory and
// reads/writes them in the NRRD format.
package volume

import (
	"errors"
	"fmt"
	"math"
)

// MaxElements bounds the number of voxel components a volume may hold.
const MaxElements = 1 << 29

var (
	ErrUnsupportedType  = errors.New("unsupported pixel type")
	ErrMalformedHeader  = errors.New("malformed NRRD header")
	ErrShortPayload     = errors.New("NRRD payload too short")
	ErrTooLarge         = errors.New("volume too large")
	ErrComponentOutside = errors.New("component index out of range")
)

// PixelType is the storage type of a single voxel component.
type PixelType int

const (
	Int8 PixelType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var pixelTypeNames = map[PixelType]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float",
	Float64: "double",
}

func (p PixelType) String() string {
	if name, ok := pixelTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("pixeltype(%d)", int(p))
}

// Size returns the number of bytes per component.
func (p PixelType) Size() int {
	switch p {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 8
	}
}

// IsFloat reports whether the type stores floating point values.
func (p PixelType) IsFloat() bool {
	return p == Float32 || p == Float64
}

// bounds returns the representable range of an integer type.
func (p PixelType) bounds() (float64, float64) {
	switch p {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	case Int64:
		return math.MinInt64, math.MaxInt64
	case Uint64:
		return 0, math.MaxUint64
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Volume is a 3D image with one or more components per voxel. Data is stored
// with x varying fastest, then y, then z; components of a voxel are adjacent.
type Volume struct {
	Size       [3]int
	Components int
	Spacing    [3]float64
	Origin     [3]float64
	Direction  [9]float64
	PixelType  PixelType
	Data       []float64
}

// New allocates a zero-filled volume with unit spacing and identity direction.
func New(x, y, z, components int, pixelType PixelType) (*Volume, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("invalid volume size %dx%dx%d", x, y, z)
	}
	if components <= 0 {
		return nil, fmt.Errorf("invalid component count %d", components)
	}
	n, err := elementCount(x, y, z, components)
	if err != nil {
		return nil, err
	}
	return build([3]int{x, y, z}, components, pixelType, make([]float64, n)), nil
}

func build(size [3]int, components int, pixelType PixelType, data []float64) *Volume {
	return &Volume{
		Size:       size,
		Components: components,
		Spacing:    [3]float64{1, 1, 1},
		Direction:  identityDirection(),
		PixelType:  pixelType,
		Data:       data,
	}
}

// elementCount multiplies the dimensions, failing on overflow or when the
// product exceeds MaxElements.
func elementCount(dims ...int) (int, error) {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("invalid volume dimension %d", d)
		}
		if n > MaxElements/d {
			return 0, fmt.Errorf("%w: %v exceeds %d elements", ErrTooLarge, dims, MaxElements)
		}
		n *= d
	}
	return n, nil
}

func identityDirection() [9]float64 {
	return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Voxels returns the number of voxels (not components).
func (v *Volume) Voxels() int {
	return v.Size[0] * v.Size[1] * v.Size[2]
}

// Index returns the Data offset of component c of voxel (x, y, z).
func (v *Volume) Index(x, y, z, c int) int {
	return ((z*v.Size[1]+y)*v.Size[0]+x)*v.Components + c
}

// Contains reports whether (x, y, z) lies inside the volume.
func (v *Volume) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Size[0] && y < v.Size[1] && z < v.Size[2]
}

func (v *Volume) At(x, y, z, c int) float64 {
	return v.Data[v.Index(x, y, z, c)]
}

func (v *Volume) Set(x, y, z, c int, value float64) {
	v.Data[v.Index(x, y, z, c)] = value
}

// Voxel returns all components of voxel (x, y, z). The slice aliases Data.
func (v *Volume) Voxel(x, y, z int) []float64 {
	start := v.Index(x, y, z, 0)
	return v.Data[start : start+v.Components]
}

// Slices is the number of planes along z.
func (v *Volume) Slices() int {
	return v.Size[2]
}

// SameGeometry reports whether two volumes share size, spacing, origin and
// direction within a small tolerance.
func SameGeometry(a, b *Volume) bool {
	if a.Size != b.Size {
		return false
	}
	const tol = 1e-4
	for i := 0; i < 3; i++ {
		if math.Abs(a.Spacing[i]-b.Spacing[i]) > tol || math.Abs(a.Origin[i]-b.Origin[i]) > tol {
			return false
		}
	}
	for i := 0; i < 9; i++ {
		if math.Abs(a.Direction[i]-b.Direction[i]) > tol {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	c := *v
	c.Data = make([]float64, len(v.Data))
	copy(c.Data, v.Data)
	return &c
}

// Slice returns a copy of component c of plane z, x varying fastest.
func (v *Volume) Slice(z, c int) []float64 {
	out := make([]float64, v.Size[0]*v.Size[1])
	for y := 0; y < v.Size[1]; y++ {
		for x := 0; x < v.Size[0]; x++ {
			out[y*v.Size[0]+x] = v.At(x, y, z, c)
		}
	}
	return out
}

// PhysicalPoint maps a continuous index to physical space using spacing,
// direction and origin.
func (v *Volume) PhysicalPoint(x, y, z float64) [3]float64 {
	idx := [3]float64{x * v.Spacing[0], y * v.Spacing[1], z * v.Spacing[2]}
	var p [3]float64
	for i := 0; i < 3; i++ {
		p[i] = v.Origin[i]
		for j := 0; j < 3; j++ {
			p[i] += v.Direction[i*3+j] * idx[j]
		}
	}
	return p
}
