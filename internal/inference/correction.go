package inference

import (
	"math"
	"sort"
)

// Bonferroni multiplies every p-value by the number of tests. The result is
// not clipped at 1.
func Bonferroni(p []float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * n
	}
	return out
}

// BenjaminiHochberg returns FDR-adjusted p-values: p·n/rank, made monotone
// from the largest rank down and clipped at 1. NaN inputs stay NaN and do
// not count towards n.
func BenjaminiHochberg(p []float64) []float64 {
	out := make([]float64, len(p))
	order := make([]int, 0, len(p))
	for i, v := range p {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p[order[a]] < p[order[b]]
	})

	n := float64(len(order))
	running := math.Inf(1)
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		q := p[i] * n / float64(k+1)
		if q < running {
			running = q
		}
		out[i] = math.Min(running, 1)
	}
	return out
}
