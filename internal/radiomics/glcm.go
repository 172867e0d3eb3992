package radiomics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// glcmDirections returns the neighbour offsets (x, y, z) at distance 1. Only
// one of each opposing pair is listed since the matrices are symmetric.
func glcmDirections(force2D bool) [][3]int {
	inPlane := [][3]int{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {-1, 1, 0}}
	if force2D {
		return inPlane
	}
	return append(inPlane,
		[3]int{0, 0, 1},
		[3]int{1, 0, 1}, [3]int{-1, 0, 1},
		[3]int{0, 1, 1}, [3]int{0, -1, 1},
		[3]int{1, 1, 1}, [3]int{-1, 1, 1},
		[3]int{1, -1, 1}, [3]int{-1, -1, 1},
	)
}

// glcm computes gray level co-occurrence features averaged over all
// directions with at least one voxel pair. bins holds the gray level of each
// region voxel in r.coords order and levels is the highest level.
func glcm(r *roi, bins []int, levels int, force2D bool) map[string]float64 {
	// compact the levels that occur so empty rows and columns drop out
	present := make(map[int]int)
	for _, b := range bins {
		present[b] = 0
	}
	ivals := make([]float64, 0, len(present))
	for b := range present {
		ivals = append(ivals, float64(b))
	}
	sort.Float64s(ivals)
	for i, v := range ivals {
		present[int(v)] = i
	}

	gray := make([]int, len(r.inside))
	for i, c := range r.coords {
		gray[r.offset(c[0], c[1], c[2])] = present[bins[i]]
	}

	n := len(ivals)
	sums := make(map[string]float64)
	angles := 0
	for _, d := range glcmDirections(force2D) {
		p := mat.NewDense(n, n, nil)
		total := 0.0
		for _, c := range r.coords {
			x, y, z := c[0]+d[0], c[1]+d[1], c[2]+d[2]
			if !r.contains(x, y, z) {
				continue
			}
			a := gray[r.offset(c[0], c[1], c[2])]
			b := gray[r.offset(x, y, z)]
			p.Set(a, b, p.At(a, b)+1)
			p.Set(b, a, p.At(b, a)+1)
			total += 2
		}
		if total == 0 {
			continue
		}
		p.Scale(1/total, p)

		for name, v := range glcmFeatures(p, ivals, float64(levels)) {
			sums[name] += v
		}
		angles++
	}

	if angles == 0 {
		return nil
	}
	for name := range sums {
		sums[name] /= float64(angles)
	}
	return sums
}

// glcmFeatures computes the texture features of one normalized matrix.
// ivals are the gray levels of the rows and columns, ng the level count.
func glcmFeatures(p *mat.Dense, ivals []float64, ng float64) map[string]float64 {
	n := len(ivals)
	px := make([]float64, n)
	py := make([]float64, n)
	for i := 0; i < n; i++ {
		px[i] = floats.Sum(mat.Row(nil, i, p))
		py[i] = floats.Sum(mat.Col(nil, i, p))
	}

	ux, uy := floats.Dot(px, ivals), floats.Dot(py, ivals)
	varX, varY := 0.0, 0.0
	for i, v := range ivals {
		varX += px[i] * (v - ux) * (v - ux)
		varY += py[i] * (v - uy) * (v - uy)
	}

	// sum and difference distributions are keyed by level value
	pSum := make(map[float64]float64)
	pDiff := make(map[float64]float64)

	var autocorr, prominence, shade, tendency, contrast, energy, hxy, hxy1, hxy2, maxProb, sumSquares float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pij := p.At(i, j)
			vi, vj := ivals[i], ivals[j]
			pxy := px[i] * py[j]
			hxy1 -= pij * math.Log2(pxy+eps)
			hxy2 -= pxy * math.Log2(pxy+eps)
			if pij == 0 {
				continue
			}
			s := vi + vj - ux - uy
			autocorr += pij * vi * vj
			prominence += pij * s * s * s * s
			shade += pij * s * s * s
			tendency += pij * s * s
			contrast += pij * (vi - vj) * (vi - vj)
			energy += pij * pij
			hxy -= pij * math.Log2(pij+eps)
			sumSquares += pij * (vi - ux) * (vi - ux)
			if pij > maxProb {
				maxProb = pij
			}
			pSum[vi+vj] += pij
			pDiff[math.Abs(vi-vj)] += pij
		}
	}

	var diffAvg, diffEntropy, idm, idmn, id, idn, invVar float64
	for k, v := range pDiff {
		diffAvg += k * v
		diffEntropy -= v * math.Log2(v+eps)
		idm += v / (1 + k*k)
		idmn += v / (1 + k*k/(ng*ng))
		id += v / (1 + k)
		idn += v / (1 + k/ng)
		if k > 0 {
			invVar += v / (k * k)
		}
	}
	diffVar := 0.0
	for k, v := range pDiff {
		diffVar += (k - diffAvg) * (k - diffAvg) * v
	}

	var sumAvg, sumEntropy float64
	for k, v := range pSum {
		sumAvg += k * v
		sumEntropy -= v * math.Log2(v+eps)
	}

	var hx, hy float64
	for i := 0; i < n; i++ {
		hx -= px[i] * math.Log2(px[i]+eps)
		hy -= py[i] * math.Log2(py[i]+eps)
	}

	correlation := 1.0
	if sd := math.Sqrt(varX * varY); sd > 0 {
		correlation = (autocorr - ux*uy) / sd
	}
	imc1 := 0.0
	if m := math.Max(hx, hy); m > 0 {
		imc1 = (hxy - hxy1) / m
	}
	imc2 := 0.0
	if hxy2 > hxy {
		imc2 = math.Sqrt(1 - math.Exp(-2*(hxy2-hxy)))
	}

	return map[string]float64{
		"Autocorrelation":    autocorr,
		"ClusterProminence":  prominence,
		"ClusterShade":       shade,
		"ClusterTendency":    tendency,
		"Contrast":           contrast,
		"Correlation":        correlation,
		"DifferenceAverage":  diffAvg,
		"DifferenceEntropy":  diffEntropy,
		"DifferenceVariance": diffVar,
		"Id":                 id,
		"Idm":                idm,
		"Idmn":               idmn,
		"Idn":                idn,
		"Imc1":               imc1,
		"Imc2":               imc2,
		"InverseVariance":    invVar,
		"JointAverage":       ux,
		"JointEnergy":        energy,
		"JointEntropy":       hxy,
		"MCC":                mcc(p, px, py),
		"MaximumProbability": maxProb,
		"SumAverage":         sumAvg,
		"SumEntropy":         sumEntropy,
		"SumSquares":         sumSquares,
	}
}

// mcc is the maximal correlation coefficient: the square root of the second
// largest eigenvalue of Q(i,j) = sum_k p(i,k)p(j,k)/(px(i)py(k)).
func mcc(p *mat.Dense, px, py []float64) float64 {
	n := len(px)
	if n < 2 {
		return 1
	}
	q := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if px[i] == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			sum := 0.0
			for k := 0; k < n; k++ {
				if py[k] == 0 {
					continue
				}
				sum += p.At(i, k) * p.At(j, k) / (px[i] * py[k])
			}
			q.Set(i, j, sum)
		}
	}

	var eig mat.Eigen
	if !eig.Factorize(q, mat.EigenNone) {
		return 0
	}
	values := eig.Values(nil)
	re := make([]float64, len(values))
	for i, v := range values {
		re[i] = math.Max(0, real(v))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(re)))
	return math.Sqrt(re[1])
}
