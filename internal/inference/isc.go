// Package inference implements the subject-bootstrap test of group ISC and
// the multiple-comparison corrections applied across parcels.
package inference

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/gonum/matrix/mat64"
	"github.com/montanaflynn/stats"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Result is the bootstrap summary of one ISC matrix
type Result struct {
	ISC    float64
	P      float64
	CILow  float64
	CIHigh float64
}

// Options controls the bootstrap
type Options struct {
	N         int
	CIPercent float64
	Rand      *rand.Rand
}

// MeanISC is the Fisher-z average tanh(mean(arctanh r)) over the strict
// upper triangle. NaN cells and perfect self-similarity (r == 1) are skipped.
func MeanISC(m mat64.Matrix) float64 {
	n, _ := m.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return meanOver(fisherZ(m), idx)
}

// Bootstrap resamples subjects with replacement opt.N times and returns the
// observed mean ISC, the two-tailed p-value of the centred bootstrap
// distribution and its percentile confidence interval
func Bootstrap(m mat64.Matrix, opt Options) (Result, error) {
	n, c := m.Dims()
	if n != c || n < 2 {
		return Result{}, errors.InvalidInput(fmt.Sprintf("bootstrap needs a square matrix of at least 2 subjects, got %d by %d", n, c))
	}
	if opt.N < 1 {
		return Result{}, errors.InvalidInput("bootstrap needs at least one resample")
	}
	if opt.Rand == nil {
		opt.Rand = rand.New(rand.NewSource(1))
	}
	if opt.CIPercent <= 0 || opt.CIPercent >= 100 {
		opt.CIPercent = 95
	}

	z := fisherZ(m)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	observed := meanOver(z, all)

	draws := make([]float64, 0, opt.N)
	exceed := 0
	sample := make([]int, n)
	for b := 0; b < opt.N; b++ {
		for i := range sample {
			sample[i] = opt.Rand.Intn(n)
		}
		sort.Ints(sample)

		v := meanOver(z, sample)
		if math.IsNaN(v) {
			continue
		}
		draws = append(draws, v)
		if math.Abs(v-observed) >= math.Abs(observed) {
			exceed++
		}
	}

	res := Result{
		ISC:    observed,
		P:      float64(exceed+1) / float64(len(draws)+1),
		CILow:  math.NaN(),
		CIHigh: math.NaN(),
	}
	// resamples made only of one subject have no pairs and were dropped
	if math.IsNaN(observed) || len(draws) == 0 {
		res.P = math.NaN()
		return res, nil
	}

	tail := (100 - opt.CIPercent) / 2
	lo, err := stats.Percentile(draws, tail)
	if err != nil {
		return Result{}, errors.StatsError("bootstrap lower percentile", err)
	}
	hi, err := stats.Percentile(draws, 100-tail)
	if err != nil {
		return Result{}, errors.StatsError("bootstrap upper percentile", err)
	}
	res.CILow, res.CIHigh = lo, hi

	return res, nil
}

// SeedFor derives a reproducible per-job seed
func SeedFor(base int64, movie string, parcel int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%d", base, movie, parcel)
	return int64(h.Sum64() & math.MaxInt64)
}

// fisherZ returns arctanh of every cell; NaN marks cells to skip
func fisherZ(m mat64.Matrix) *mat64.Dense {
	n, _ := m.Dims()
	z := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := m.At(i, j)
			if r == 1 || math.IsNaN(r) {
				z.Set(i, j, math.NaN())
				continue
			}
			z.Set(i, j, math.Atanh(r))
		}
	}
	return z
}

// meanOver averages z over all index pairs i < j of the (possibly repeating)
// subject sample; repeated subjects are self pairs and skipped
func meanOver(z *mat64.Dense, sample []int) float64 {
	values := make(stats.Float64Data, 0, len(sample)*(len(sample)-1)/2)
	for a := 0; a < len(sample); a++ {
		for b := a + 1; b < len(sample); b++ {
			i, j := sample[a], sample[b]
			if i == j {
				continue
			}
			v := z.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			values = append(values, v)
		}
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return math.NaN()
	}
	return math.Tanh(mean)
}
