package radiomics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"radiomics-toolkit/internal/volume"
)

// derive returns the image of the given type computed from img. The original
// type returns img itself.
func derive(it ImageType, img *volume.Volume) *volume.Volume {
	switch it {
	case ImageSquare:
		return mapIntensity(img, squareFilter)
	case ImageSquareRoot:
		return mapIntensity(img, squareRootFilter)
	case ImageLogarithm:
		return mapIntensity(img, logarithmFilter)
	case ImageExponential:
		return mapIntensity(img, exponentialFilter)
	case ImageGradient:
		return gradientMagnitude(img)
	default:
		return img
	}
}

func mapIntensity(img *volume.Volume, filter func(dst, src []float64)) *volume.Volume {
	out := img.Clone()
	out.PixelType = volume.Float64
	filter(out.Data, img.Data)
	return out
}

func maxAbs(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(values)), math.Abs(floats.Min(values)))
}

// squareFilter computes (x/sqrt(max|x|))^2.
func squareFilter(dst, src []float64) {
	m := maxAbs(src)
	if m == 0 {
		floats.Scale(0, dst)
		return
	}
	coeff := 1 / math.Sqrt(m)
	for i, v := range src {
		s := coeff * v
		dst[i] = s * s
	}
}

// squareRootFilter computes sign(x)*sqrt(|x|*max|x|).
func squareRootFilter(dst, src []float64) {
	m := maxAbs(src)
	for i, v := range src {
		switch {
		case v > 0:
			dst[i] = math.Sqrt(v * m)
		case v < 0:
			dst[i] = -math.Sqrt(-v * m)
		default:
			dst[i] = 0
		}
	}
}

// logarithmFilter computes sign(x)*log(|x|+1) rescaled to the input range.
func logarithmFilter(dst, src []float64) {
	m := maxAbs(src)
	for i, v := range src {
		switch {
		case v > 0:
			dst[i] = math.Log(v + 1)
		case v < 0:
			dst[i] = -math.Log(1 - v)
		default:
			dst[i] = 0
		}
	}
	if lm := maxAbs(dst); lm > 0 {
		floats.Scale(m/lm, dst)
	}
}

// exponentialFilter computes exp(x*log(max|x|)/max|x|), mapping the input
// range onto [1/max, max].
func exponentialFilter(dst, src []float64) {
	m := maxAbs(src)
	coeff := 0.0
	if m > 0 {
		coeff = math.Log(m) / m
	}
	for i, v := range src {
		dst[i] = math.Exp(coeff * v)
	}
}

// gradientMagnitude computes the central difference gradient magnitude in
// physical units. Borders replicate the edge voxel.
func gradientMagnitude(img *volume.Volume) *volume.Volume {
	out := img.Clone()
	out.PixelType = volume.Float64
	nx, ny, nz := img.Size[0], img.Size[1], img.Size[2]

	clamp := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				gx := (img.At(clamp(x+1, nx), y, z, 0) - img.At(clamp(x-1, nx), y, z, 0)) / (2 * img.Spacing[0])
				gy := (img.At(x, clamp(y+1, ny), z, 0) - img.At(x, clamp(y-1, ny), z, 0)) / (2 * img.Spacing[1])
				gz := (img.At(x, y, clamp(z+1, nz), 0) - img.At(x, y, clamp(z-1, nz), 0)) / (2 * img.Spacing[2])
				out.Set(x, y, z, 0, math.Sqrt(gx*gx+gy*gy+gz*gz))
			}
		}
	}
	return out
}
