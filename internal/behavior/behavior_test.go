package behavior

import (
	"math"
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

func roster() []refdata.Subject {
	return []refdata.Subject{
		{PID: "001", Age: 20, Sex: "F"},
		{PID: "002", Age: 25, Sex: "M"},
		{PID: "003", Age: 30, Sex: "F"},
	}
}

func TestAgeMatrix(t *testing.T) {
	m, err := AgeMatrix(roster())
	require.NoError(t, err)

	assert.Equal(t, []string{"001", "002", "003"}, m.PIDs)
	assert.True(t, mat64.Equal(mat64.NewDense(3, 3, []float64{
		0, 5, 10,
		5, 0, 5,
		10, 5, 0,
	}), m.Data))
	assert.True(t, calc.SymCheck(m.Data, 1e-15))
	assert.True(t, calc.DiagCheck(m.Data, 0, 1e-15))
}

func TestSexMatrix(t *testing.T) {
	m, err := SexMatrix(roster())
	require.NoError(t, err)

	assert.True(t, mat64.Equal(mat64.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 0, 1,
		0, 1, 0,
	}), m.Data))

	_, err = SexMatrix(nil)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestItemIDs(t *testing.T) {
	ids := ItemIDs(roster()[:2], 16)
	require.Len(t, ids, 64)

	assert.Equal(t, ItemID{"001", Pre, 1}, ids[0])
	assert.Equal(t, ItemID{"001", Pre, 16}, ids[15])
	assert.Equal(t, ItemID{"001", Post, 1}, ids[16])
	assert.Equal(t, ItemID{"002", Pre, 1}, ids[32])

	assert.Equal(t, "sub-002|post|07", ItemID{"002", Post, 7}.String())
	for _, id := range ids {
		parsed, err := ParseItemID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}

	_, err := ParseItemID("sub-001-pre-01")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
	_, err = ParseItemID("sub-001|during|01")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

// itemRDM fills an item-level matrix where same-item cells between subjects
// s1 < s2 hold base(s1, s2, phase) + item and everything else holds noise
func itemRDM(ids []ItemID, index map[string]int, base func(s1, s2 int, p Phase) float64) *mat64.Dense {
	n := len(ids)
	m := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, b := ids[i], ids[j]
			v := 1000.0
			if a.Phase == b.Phase && a.Item == b.Item {
				v = base(index[a.Subject], index[b.Subject], a.Phase) + float64(a.Item)
			}
			if i > j {
				v = -1 // lower triangle must be ignored
			}
			m.Set(i, j, v)
		}
	}
	return m
}

func TestReconstructRDM(t *testing.T) {
	subjects := roster()
	items := 4
	ids := ItemIDs(subjects, items)
	index := map[string]int{"001": 0, "002": 1, "003": 2}

	raw := itemRDM(ids, index, func(s1, s2 int, p Phase) float64 {
		v := float64(10*s1 + s2)
		if p == Post {
			v += 100
		}
		return v
	})

	out, err := ReconstructRDM(raw, ids, subjects)
	require.NoError(t, err)

	// mean of items 1..4 is 2.5
	pre := out[Pre].Data
	assert.Equal(t, 0.0, pre.At(0, 0))
	assert.InDelta(t, 1+2.5, pre.At(0, 1), 1e-12)
	assert.InDelta(t, 12+2.5, pre.At(1, 2), 1e-12)
	assert.InDelta(t, 12+2.5, pre.At(2, 1), 1e-12)

	post := out[Post].Data
	assert.InDelta(t, 102+2.5, post.At(2, 0), 1e-12)
	assert.True(t, calc.SymCheck(post, 1e-12))
	assert.True(t, calc.DiagCheck(post, 0, 1e-15))
	assert.Equal(t, []string{"001", "002", "003"}, out[Post].PIDs)
}

func TestReconstructRDMErrors(t *testing.T) {
	ids := ItemIDs(roster(), 2)
	_, err := ReconstructRDM(mat64.NewDense(3, 3, nil), ids, roster())
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	stranger := append([]ItemID(nil), ids...)
	stranger[0].Subject = "099"
	_, err = ReconstructRDM(mat64.NewDense(len(ids), len(ids), nil), stranger, roster())
	assert.True(t, errors.HasCode(err, errors.CodeLookupMismatch))
}

func TestReconstructRDMMissingPair(t *testing.T) {
	ids := ItemIDs(roster(), 1)
	raw := mat64.NewDense(len(ids), len(ids), nil)
	for i := range ids {
		for j := range ids {
			raw.Set(i, j, math.NaN())
		}
	}
	out, err := ReconstructRDM(raw, ids, roster())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[Pre].Data.At(0, 1)))
}

func TestLoadRawNpy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdm.npy")
	m := mat64.NewDense(2, 2, []float64{0, 1, 1, 0})
	require.NoError(t, io.WriteNpy(path, m))

	got, err := LoadRaw(path, "")
	require.NoError(t, err)
	assert.True(t, mat64.Equal(m, got))

	_, err = LoadRaw("rdm.txt", "")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestMatrixName(t *testing.T) {
	assert.Equal(t, "Features_pre.csv", MatrixName("Features", Pre))
	assert.Equal(t, "Naming_post.csv", MatrixName("Naming", Post))
}
