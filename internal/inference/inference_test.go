package inference

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func constantISC(n int, r float64) *mat64.SymDense {
	m := mat64.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, r)
		}
	}
	return m
}

func TestMeanISC(t *testing.T) {
	assert.InDelta(t, 0.6, MeanISC(constantISC(5, 0.6)), 1e-12)

	m := mat64.NewSymDense(3, []float64{
		1, 0.2, 0.4,
		0.2, 1, math.NaN(),
		0.4, math.NaN(), 1,
	})
	want := math.Tanh((math.Atanh(0.2) + math.Atanh(0.4)) / 2)
	assert.InDelta(t, want, MeanISC(m), 1e-12)
}

func TestBootstrapStrongISC(t *testing.T) {
	res, err := Bootstrap(constantISC(6, 0.6), Options{N: 200, CIPercent: 95, Rand: rand.New(rand.NewSource(7))})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.ISC, 1e-12)
	assert.InDelta(t, 1.0/201, res.P, 1e-12)
	assert.InDelta(t, 0.6, res.CILow, 1e-12)
	assert.InDelta(t, 0.6, res.CIHigh, 1e-12)
}

func TestBootstrapNullISC(t *testing.T) {
	m := mat64.NewSymDense(4, []float64{
		1, 0.3, -0.3, 0.3,
		0.3, 1, -0.3, 0.3,
		-0.3, -0.3, 1, -0.3,
		0.3, 0.3, -0.3, 1,
	})
	res, err := Bootstrap(m, Options{N: 500, Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)

	assert.InDelta(t, 0, res.ISC, 1e-12)
	assert.Greater(t, res.P, 0.9)
	assert.LessOrEqual(t, res.P, 1.0)
	assert.LessOrEqual(t, res.CILow, res.CIHigh)
}

func TestBootstrapReproducible(t *testing.T) {
	m := mat64.NewSymDense(4, []float64{
		1, 0.5, 0.1, 0.2,
		0.5, 1, 0.3, -0.1,
		0.1, 0.3, 1, 0.4,
		0.2, -0.1, 0.4, 1,
	})
	seed := SeedFor(1, "movie3", 17)
	a, err := Bootstrap(m, Options{N: 300, Rand: rand.New(rand.NewSource(seed))})
	require.NoError(t, err)
	b, err := Bootstrap(m, Options{N: 300, Rand: rand.New(rand.NewSource(seed))})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, seed, SeedFor(1, "movie3", 18))
	assert.NotEqual(t, seed, SeedFor(1, "movie4", 17))
}

func TestBootstrapDroppedDraws(t *testing.T) {
	// with two subjects half the resamples draw one subject twice and
	// carry no pair; every kept draw equals the observed ISC
	m := constantISC(2, 0.5)
	const n = 400

	replay := rand.New(rand.NewSource(11))
	kept := 0
	for b := 0; b < n; b++ {
		if replay.Intn(2) != replay.Intn(2) {
			kept++
		}
	}
	require.Less(t, kept, n)
	require.Greater(t, kept, 0)

	res, err := Bootstrap(m, Options{N: n, Rand: rand.New(rand.NewSource(11))})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.ISC, 1e-12)
	assert.InDelta(t, 1.0/float64(kept+1), res.P, 1e-12)
	assert.InDelta(t, 0.5, res.CILow, 1e-12)
}

func TestBootstrapInvalid(t *testing.T) {
	_, err := Bootstrap(mat64.NewDense(2, 3, nil), Options{N: 10})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
	_, err = Bootstrap(constantISC(3, 0.1), Options{N: 0})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestBonferroni(t *testing.T) {
	p := []float64{0.01, 0.2, 0.5}
	fwe := Bonferroni(p)
	assert.InDeltaSlice(t, []float64{0.03, 0.6, 1.5}, fwe, 1e-12)
	for i := range p {
		assert.GreaterOrEqual(t, fwe[i], p[i])
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.5}
	q := BenjaminiHochberg(p)
	assert.InDeltaSlice(t, []float64{0.04, 0.04 * 4 / 3, 0.04 * 4 / 3, 0.5}, q, 1e-12)

	for i := range p {
		assert.GreaterOrEqual(t, q[i], p[i])
		for j := range p {
			if p[i] <= p[j] {
				assert.LessOrEqual(t, q[i], q[j])
			}
		}
	}

	q = BenjaminiHochberg([]float64{0.9, math.NaN(), 0.95})
	assert.True(t, math.IsNaN(q[1]))
	assert.InDelta(t, 0.95, q[0], 1e-12)
	assert.LessOrEqual(t, q[2], 1.0)
}
