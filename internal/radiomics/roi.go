package radiomics

import (
	"radiomics-toolkit/internal/volume"
)

// roi is the set of voxels carrying the label, in raster order.
type roi struct {
	size    [3]int
	inside  []bool
	coords  [][3]int
	bboxMin [3]int
	bboxMax [3]int
}

func newROI(mask *volume.Volume, label int) *roi {
	r := &roi{
		size:    mask.Size,
		inside:  make([]bool, mask.Voxels()),
		bboxMin: mask.Size,
		bboxMax: [3]int{-1, -1, -1},
	}
	want := float64(label)
	for z := 0; z < mask.Size[2]; z++ {
		for y := 0; y < mask.Size[1]; y++ {
			for x := 0; x < mask.Size[0]; x++ {
				if mask.At(x, y, z, 0) != want {
					continue
				}
				r.inside[r.offset(x, y, z)] = true
				c := [3]int{x, y, z}
				r.coords = append(r.coords, c)
				for i := 0; i < 3; i++ {
					if c[i] < r.bboxMin[i] {
						r.bboxMin[i] = c[i]
					}
					if c[i] > r.bboxMax[i] {
						r.bboxMax[i] = c[i]
					}
				}
			}
		}
	}
	return r
}

func (r *roi) offset(x, y, z int) int {
	return (z*r.size[1]+y)*r.size[0] + x
}

// contains reports whether (x, y, z) is inside the volume and labelled.
func (r *roi) contains(x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || x >= r.size[0] || y >= r.size[1] || z >= r.size[2] {
		return false
	}
	return r.inside[r.offset(x, y, z)]
}

func (r *roi) count() int {
	return len(r.coords)
}

// values gathers the intensities of img under the region.
func (r *roi) values(img *volume.Volume) []float64 {
	out := make([]float64, len(r.coords))
	for i, c := range r.coords {
		out[i] = img.At(c[0], c[1], c[2], 0)
	}
	return out
}

// components counts 26-connected parts of the region.
func (r *roi) components() int {
	seen := make([]bool, len(r.inside))
	n := 0
	stack := make([][3]int, 0, 64)
	for _, start := range r.coords {
		if seen[r.offset(start[0], start[1], start[2])] {
			continue
		}
		n++
		seen[r.offset(start[0], start[1], start[2])] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for dz := -1; dz <= 1; dz++ {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						x, y, z := c[0]+dx, c[1]+dy, c[2]+dz
						if !r.contains(x, y, z) || seen[r.offset(x, y, z)] {
							continue
						}
						seen[r.offset(x, y, z)] = true
						stack = append(stack, [3]int{x, y, z})
					}
				}
			}
		}
	}
	return n
}
