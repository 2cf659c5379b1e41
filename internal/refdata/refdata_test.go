package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func fixture(t *testing.T) (string, string, string) {
	dir := t.TempDir()
	roster := writeFile(t, dir, "roster.csv", "PID,age,sex_char\n1,20,F\n002,25,M\nsub-003,30,F\n")
	labels := writeFile(t, dir, "labels.csv", "one_based,label,Yeo_7network\n1,A8m_L,7\n2,A8m_R,0\n")
	pairs := writeFile(t, dir, "pairs.csv", "PairID\n001_002\n")
	return roster, labels, pairs
}

func TestNormalizePID(t *testing.T) {
	assert.Equal(t, "001", NormalizePID("sub-001"))
	assert.Equal(t, "001", NormalizePID("1"))
	assert.Equal(t, "042", NormalizePID(" 42 "))
	assert.Equal(t, "123", NormalizePID("sub-123"))
	assert.Equal(t, "abc", NormalizePID("abc"))
}

func TestLoad(t *testing.T) {
	roster, labels, pairs := fixture(t)

	b, err := Load(roster, labels, pairs)
	require.NoError(t, err)

	assert.Equal(t, []string{"001", "002", "003"}, b.PIDs())
	assert.Equal(t, 25.0, b.Roster[1].Age)
	assert.Equal(t, "F", b.Roster[2].Sex)
	assert.Equal(t, []string{"001_002"}, b.RealPairs)
	assert.Len(t, b.Version, 16)

	p, ok := b.Parcel(1)
	require.True(t, ok)
	assert.Equal(t, "Default", p.Network)
	p, ok = b.Parcel(2)
	require.True(t, ok)
	assert.Equal(t, "NA", p.Network)
	_, ok = b.Parcel(3)
	assert.False(t, ok)
}

func TestVersionTracksContent(t *testing.T) {
	roster, labels, pairs := fixture(t)
	b1, err := Load(roster, labels, pairs)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(pairs, []byte("PairID\n001_003\n"), 0644))
	b2, err := Load(roster, labels, pairs)
	require.NoError(t, err)

	assert.NotEqual(t, b1.Version, b2.Version)
}

func TestLoadMissingFile(t *testing.T) {
	_, labels, pairs := fixture(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), labels, pairs)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput))
}

func TestLoadDuplicatePID(t *testing.T) {
	_, labels, pairs := fixture(t)
	roster := writeFile(t, t.TempDir(), "dup.csv", "PID,age,sex_char\n1,20,F\nsub-001,21,M\n")
	_, err := Load(roster, labels, pairs)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}
