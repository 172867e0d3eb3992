package radiomics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"radiomics-toolkit/internal/volume"
)

// faceOffsets are the six face neighbours with the spacing axis they cross.
var faceOffsets = [6]struct {
	d    [3]int
	axis int
}{
	{[3]int{-1, 0, 0}, 0}, {[3]int{1, 0, 0}, 0},
	{[3]int{0, -1, 0}, 1}, {[3]int{0, 1, 0}, 1},
	{[3]int{0, 0, -1}, 2}, {[3]int{0, 0, 1}, 2},
}

// shape computes size and form descriptors of the region. Surface area is
// the area of exposed voxel faces.
func shape(r *roi, ref *volume.Volume) map[string]float64 {
	sp := ref.Spacing
	faceArea := [3]float64{sp[1] * sp[2], sp[0] * sp[2], sp[0] * sp[1]}
	voxelVolume := sp[0] * sp[1] * sp[2]

	volumeMM := float64(r.count()) * voxelVolume
	area := 0.0
	var surface [][3]float64
	var surfaceSlice []int
	for _, c := range r.coords {
		exposed := false
		for _, f := range faceOffsets {
			if !r.contains(c[0]+f.d[0], c[1]+f.d[1], c[2]+f.d[2]) {
				area += faceArea[f.axis]
				exposed = true
			}
		}
		if exposed {
			surface = append(surface, ref.PhysicalPoint(float64(c[0]), float64(c[1]), float64(c[2])))
			surfaceSlice = append(surfaceSlice, c[2])
		}
	}

	max3D, max2D := 0.0, 0.0
	for i := range surface {
		for j := i + 1; j < len(surface); j++ {
			d := distance(surface[i], surface[j])
			if d > max3D {
				max3D = d
			}
			if surfaceSlice[i] == surfaceSlice[j] && d > max2D {
				max2D = d
			}
		}
	}

	out := map[string]float64{
		"VoxelVolume":            volumeMM,
		"SurfaceArea":            area,
		"SurfaceVolumeRatio":     area / volumeMM,
		"Sphericity":             math.Cbrt(36*math.Pi*volumeMM*volumeMM) / area,
		"Maximum3DDiameter":      max3D,
		"Maximum2DDiameterSlice": max2D,
	}

	major, minor, least := principalAxes(r, ref)
	out["MajorAxisLength"] = 4 * math.Sqrt(major)
	out["MinorAxisLength"] = 4 * math.Sqrt(minor)
	out["LeastAxisLength"] = 4 * math.Sqrt(least)
	out["Elongation"], out["Flatness"] = 0, 0
	if major > 0 {
		out["Elongation"] = math.Sqrt(minor / major)
		out["Flatness"] = math.Sqrt(least / major)
	}
	return out
}

func distance(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// principalAxes returns the eigenvalues of the covariance of the physical
// voxel positions, largest first. Tiny negative eigenvalues are clamped to 0.
func principalAxes(r *roi, ref *volume.Volume) (float64, float64, float64) {
	if r.count() < 2 {
		return 0, 0, 0
	}
	points := mat.NewDense(r.count(), 3, nil)
	for i, c := range r.coords {
		p := ref.PhysicalPoint(float64(c[0]), float64(c[1]), float64(c[2]))
		points.SetRow(i, p[:])
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, points, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, false) {
		return 0, 0, 0
	}
	vals := eig.Values(nil)
	for i := range vals {
		if vals[i] < 0 {
			vals[i] = 0
		}
	}
	// ascending order
	return vals[2], vals[1], vals[0]
}
