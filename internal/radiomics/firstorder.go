package radiomics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// eps keeps log2 finite for empty probabilities.
const eps = 2.220446049250313e-16

// discretize assigns each value a 1-based bin of fixed width. Bin edges are
// aligned to multiples of binWidth below the minimum. It returns the bins and
// the highest bin used.
func discretize(values []float64, binWidth float64) ([]int, int) {
	bins := make([]int, len(values))
	if len(values) == 0 {
		return bins, 0
	}
	lo := binWidth * math.Floor(floats.Min(values)/binWidth)
	levels := 0
	for i, v := range values {
		b := int(math.Floor((v-lo)/binWidth)) + 1
		if b < 1 {
			b = 1
		}
		bins[i] = b
		if b > levels {
			levels = b
		}
	}
	return bins, levels
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// firstOrder computes intensity statistics of the region. voxelVolume is the
// physical volume of one voxel.
func firstOrder(values []float64, binWidth, voxelVolume float64) map[string]float64 {
	n := float64(len(values))
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean := stat.Mean(values, nil)
	m2 := stat.Moment(2, values, nil)
	m3 := stat.Moment(3, values, nil)
	m4 := stat.Moment(4, values, nil)

	p10 := percentile(sorted, 10)
	p90 := percentile(sorted, 90)

	energy := floats.Dot(values, values)

	absDev := 0.0
	for _, v := range values {
		absDev += math.Abs(v - mean)
	}

	robust := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= p10 && v <= p90 {
			robust = append(robust, v)
		}
	}
	robustMean := stat.Mean(robust, nil)
	robustDev := 0.0
	for _, v := range robust {
		robustDev += math.Abs(v - robustMean)
	}

	bins, levels := discretize(values, binWidth)
	counts := make([]float64, levels+1)
	for _, b := range bins {
		counts[b]++
	}
	entropy, uniformity := 0.0, 0.0
	for _, c := range counts[1:] {
		p := c / n
		entropy -= p * math.Log2(p+eps)
		uniformity += p * p
	}

	skewness, kurtosis := 0.0, 0.0
	if m2 != 0 {
		skewness = m3 / math.Pow(m2, 1.5)
		kurtosis = m4 / (m2 * m2)
	}

	return map[string]float64{
		"10Percentile":                p10,
		"90Percentile":                p90,
		"Energy":                      energy,
		"Entropy":                     entropy,
		"InterquartileRange":          percentile(sorted, 75) - percentile(sorted, 25),
		"Kurtosis":                    kurtosis,
		"Maximum":                     sorted[len(sorted)-1],
		"MeanAbsoluteDeviation":       absDev / n,
		"Mean":                        mean,
		"Median":                      percentile(sorted, 50),
		"Minimum":                     sorted[0],
		"Range":                       sorted[len(sorted)-1] - sorted[0],
		"RobustMeanAbsoluteDeviation": robustDev / float64(len(robust)),
		"RootMeanSquared":             math.Sqrt(energy / n),
		"Skewness":                    skewness,
		"StandardDeviation":           math.Sqrt(m2),
		"TotalEnergy":                 energy * voxelVolume,
		"Uniformity":                  uniformity,
		"Variance":                    m2,
	}
}
