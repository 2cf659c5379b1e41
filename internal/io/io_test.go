package io

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func TestSubjectMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ISC_movie1_parcel1.csv")

	m := &SubjectMatrix{
		PIDs: []string{"001", "002", "003"},
		Data: mat64.NewDense(3, 3, []float64{
			1, 0.25, -0.5,
			0.25, 1, math.NaN(),
			-0.5, math.NaN(), 1,
		}),
	}
	require.NoError(t, WriteSubjectMatrix(path, m))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PID,001,002,003\n001,1,0.25,-0.5\n002,0.25,1,\n003,-0.5,,1\n", string(raw))

	got, err := ReadSubjectMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, m.PIDs, got.PIDs)
	assert.Equal(t, 0.25, got.Data.At(1, 0))
	assert.True(t, math.IsNaN(got.Data.At(2, 1)))
	assert.Equal(t, 2, got.Index("003"))
	assert.Equal(t, -1, got.Index("999"))
}

func TestReadSubjectMatrixNormalisesLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	require.NoError(t, os.WriteFile(path, []byte("PID,1,sub-002\n1,0,3\nsub-002,3,0\n"), 0644))

	got, err := ReadSubjectMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, got.PIDs)
	assert.Equal(t, 3.0, got.Data.At(0, 1))
}

func TestReadSubjectMatrixErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSubjectMatrix(filepath.Join(dir, "absent.csv"))
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("PID,001,002\n001,1,x\n002,0,1\n"), 0644))
	_, err = ReadSubjectMatrix(bad)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	swapped := filepath.Join(dir, "swapped.csv")
	require.NoError(t, os.WriteFile(swapped, []byte("PID,001,002\n002,1,0\n001,0,1\n"), 0644))
	_, err = ReadSubjectMatrix(swapped)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestTimeSeriesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub001_movie1_Average_ROI.csv")
	ts := mat64.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8.5})

	require.NoError(t, WriteTimeSeries(path, ts))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,2\n1,2\n3,4\n5,6\n7,8.5\n", string(raw))

	got, err := ReadTimeSeries(path)
	require.NoError(t, err)
	assert.True(t, mat64.Equal(ts, got))
}

func TestWriteAtomicLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.csv")

	err := WriteAtomic(path, func(w Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.InvalidInput("boom")
	})
	require.Error(t, err)
	assert.False(t, Exists(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNpyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.npy")
	m := mat64.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	require.NoError(t, WriteNpy(path, m))
	got, err := ReadNpy(path)
	require.NoError(t, err)
	assert.True(t, mat64.Equal(m, got))

	_, err = ReadNpy(filepath.Join(t.TempDir(), "absent.npy"))
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput))
}

func TestReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isc_anova.csv")
	require.NoError(t, os.WriteFile(path, []byte("Fval,pfwe\n3.5,0.01\n,NA\n"), 0644))

	tbl, err := ReadTable(path)
	require.NoError(t, err)
	assert.True(t, tbl.Has("Fval"))
	assert.False(t, tbl.Has("statistic"))
	assert.True(t, errors.HasCode(tbl.Require("Fval", "statistic"), errors.CodeInvalidInput))

	f, err := tbl.Floats("Fval")
	require.NoError(t, err)
	assert.Equal(t, 3.5, f[0])
	assert.True(t, math.IsNaN(f[1]))

	p, err := tbl.Floats("pfwe")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p[1]))
}
