package isc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// three subjects, five time points, two parcels
func tables() []*mat64.Dense {
	return []*mat64.Dense{
		mat64.NewDense(5, 2, []float64{1, 5, 2, 4, 3, 3, 4, 2, 5, 1}),
		mat64.NewDense(5, 2, []float64{2, 1, 4, 2, 6, 3, 8, 4, 10, 5}),
		mat64.NewDense(5, 2, []float64{1, 1, 3, 3, 2, 2, 5, 5, 4, 4}),
	}
}

func TestStack(t *testing.T) {
	s, err := Stack(tables(), 2)
	require.NoError(t, err)

	rows, cols := s.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 5, cols)
	assert.Equal(t, []float64{5, 4, 3, 2, 1}, mat64.Row(nil, 0, s))

	short := append(tables(), mat64.NewDense(4, 2, nil))
	_, err = Stack(short, 1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = Stack(tables(), 3)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestMatrices(t *testing.T) {
	s, err := Stack(tables(), 1)
	require.NoError(t, err)

	sim, dist, err := Matrices(calc.Init(2), s)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, sim.At(0, 1), 1e-12)
	assert.InDelta(t, 0.8, sim.At(0, 2), 1e-12)
	assert.InDelta(t, 0.2, dist.At(2, 0), 1e-12)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, sim.At(i, i))
		assert.Equal(t, 0.0, dist.At(i, i))
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 1-sim.At(i, j), dist.At(i, j), 1e-15)
		}
	}
	assert.True(t, calc.SymCheck(sim, 1e-15))
}

func TestLoadMovieSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	ts := tables()
	require.NoError(t, io.WriteTimeSeries(filepath.Join(dir, "sub001_movie1_Average_ROI.csv"), ts[0]))
	require.NoError(t, io.WriteTimeSeries(filepath.Join(dir, "sub003_movie1_Average_ROI.csv"), ts[2]))

	m, err := LoadMovie(dir, "movie1", []string{"001", "002", "003"})
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "003"}, m.PIDs)
	assert.Equal(t, []string{"002"}, m.Missing)

	n, err := m.Parcels()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStatsAndTable(t *testing.T) {
	var sims []mat64.Matrix
	for parcel := 1; parcel <= 2; parcel++ {
		s, err := Stack(tables(), parcel)
		require.NoError(t, err)
		sim, _, err := Matrices(calc.Init(1), s)
		require.NoError(t, err)
		sims = append(sims, sim)
	}

	opt := StatsOptions{Movie: "movie1", Seed: 1, N: 100, CIPercent: 95, Workers: 2}
	stats, err := Stats(context.Background(), sims, opt)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Parcel)
	assert.Equal(t, 2, stats[1].Parcel)

	again, err := Stats(context.Background(), sims, opt)
	require.NoError(t, err)
	assert.Equal(t, stats, again)

	bundle := &refdata.Bundle{Parcels: []refdata.Parcel{{Index: 1, Label: "A8m_L"}, {Index: 2, Label: "A8m_R"}}}
	rows := Table(stats, bundle)
	for _, r := range rows {
		assert.InDelta(t, r.P*2, r.PFWE, 1e-12)
		assert.GreaterOrEqual(t, r.PFWE, r.P)
		assert.GreaterOrEqual(t, r.PFDR, r.P)
	}
	assert.Equal(t, "A8m_R", rows[1].Label)

	path := filepath.Join(t.TempDir(), StatsName("movie1"))
	require.NoError(t, WriteTable(path, rows))
	records, err := io.ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, StatsHeader, records[0])
	assert.Len(t, records, 3)
	assert.Equal(t, "A8m_L", records[1][1])

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "ISC_movie2_parcel17.csv", SimilarityName("movie2", 17))
	assert.Equal(t, "movie2_parcel17.csv", DistanceName("movie2", 17))
	assert.Equal(t, "ISC_movie2.csv", StatsName("movie2"))
	assert.Equal(t, "Mean_ISC_movie2.png", MeanMapName("movie2"))
}
