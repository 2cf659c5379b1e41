package extract

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/mask"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

type series struct {
	nx, nt int
	value  func(x, t int) float64
}

func (s series) Shape() (int, int, int, int) { return s.nx, 1, 1, s.nt }

func (s series) At(x, y, z, t int) float64 { return s.value(x, t) }

func parcellation(t *testing.T, labels []float64, n int) *mask.Parcellation {
	atlas := volume.NewGrid(len(labels), 1, 1)
	copy(atlas.Data, labels)
	p, err := mask.NewParcellation(atlas, nil, n)
	require.NoError(t, err)
	return p
}

func TestTimeSeries(t *testing.T) {
	parc := parcellation(t, []float64{1, 1, 2, 0, 2, 2}, 3)
	src := series{nx: 6, nt: 3, value: func(x, tt int) float64 {
		return float64(x*10 + tt)
	}}

	ts, err := TimeSeries(src, parc, 2)
	require.NoError(t, err)

	rows, cols := ts.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)

	// parcel 1: voxels 0,1 ; parcel 2: voxels 2,4,5
	assert.Equal(t, 5.0, ts.At(0, 0))
	assert.Equal(t, 7.0, ts.At(2, 0))
	assert.InDelta(t, 110.0/3, ts.At(0, 1), 1e-12)
	assert.InDelta(t, 110.0/3+1, ts.At(1, 1), 1e-12)
	assert.True(t, math.IsNaN(ts.At(0, 2)))
}

func TestTimeSeriesShapeMismatch(t *testing.T) {
	parc := parcellation(t, []float64{1, 2}, 2)
	_, err := TimeSeries(series{nx: 3, nt: 2, value: func(int, int) float64 { return 0 }}, parc, 1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestPlan(t *testing.T) {
	jobs := Plan([]string{"001", "002"}, []string{"movie1", "movie2"}, "/bids/sub-{pid}/s_{movie}_img.nii.gz", "/out")
	require.Len(t, jobs, 4)

	assert.Equal(t, Job{
		Subject: "002",
		Movie:   "movie1",
		Input:   "/bids/sub-002/s_movie1_img.nii.gz",
		Output:  filepath.Join("/out", "sub002_movie1_Average_ROI.csv"),
	}, jobs[1])
	assert.Equal(t, "movie2", jobs[2].Movie)
}
