package volume

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/KyungWonPark/nifti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// writeNifti writes a float32 single-file NIfTI-1 image, x fastest
func writeNifti(t *testing.T, path string, dims [4]int, value func(x, y, z, t int) float32) {
	t.Helper()

	h := nifti.Nifti1Header{
		SizeofHdr: headerSize,
		Dim:       [8]int16{4, int16(dims[0]), int16(dims[1]), int16(dims[2]), int16(dims[3]), 1, 1, 1},
		Datatype:  float32DT,
		Bitpix:    32,
		Pixdim:    [8]float32{1, 2, 2, 2, 1, 0, 0, 0},
		VoxOffset: dataOffset,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))
	buf.Write(make([]byte, dataOffset-headerSize))

	for tt := 0; tt < dims[3]; tt++ {
		for z := 0; z < dims[2]; z++ {
			for y := 0; y < dims[1]; y++ {
				for x := 0; x < dims[0]; x++ {
					require.NoError(t, binary.Write(&buf, binary.LittleEndian, value(x, y, z, tt)))
				}
			}
		}
	}

	writeFile(t, path, buf.Bytes())
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()

	if filepath.Ext(path) == ".gz" {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		data = zbuf.Bytes()
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func ramp(x, y, z, t int) float32 {
	return float32(x + 10*y + 100*z + 1000*t)
}

func TestOpenInvalid(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.nii")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 400), 0644))
	_, err := Open(garbage)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	// same image, big-endian header
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, nifti.Nifti1Header{
		SizeofHdr: headerSize,
		Dim:       [8]int16{3, 2, 2, 2, 1, 1, 1, 1},
		Datatype:  float32DT,
		Bitpix:    32,
		VoxOffset: dataOffset,
	}))
	buf.Write(make([]byte, 4+8*4))
	bigEndian := filepath.Join(dir, "big.nii")
	require.NoError(t, os.WriteFile(bigEndian, buf.Bytes(), 0644))
	_, err = Open(bigEndian)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	notGzip := filepath.Join(dir, "plain.nii.gz")
	require.NoError(t, os.WriteFile(notGzip, make([]byte, 400), 0644))
	_, err = Open(notGzip)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	truncated := filepath.Join(dir, "short.nii")
	writeNifti(t, truncated, [4]int{3, 2, 2, 2}, ramp)
	data, err := os.ReadFile(truncated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-8], 0644))
	_, err = Open(truncated)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestOpen(t *testing.T) {
	for _, name := range []string{"img.nii", "img.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeNifti(t, path, [4]int{3, 2, 2, 2}, ramp)

			v, err := Open(path)
			require.NoError(t, err)
			defer v.Close()

			assert.Equal(t, 3, v.Nx)
			assert.Equal(t, 2, v.Ny)
			assert.Equal(t, 2, v.Nz)
			assert.Equal(t, 2, v.Nt)
			assert.Equal(t, 1111.0, v.At(1, 1, 1, 1))

			g := v.Frame(0)
			assert.Equal(t, 111.0, g.At(1, 1, 1))
			assert.Equal(t, 2.0, g.At(2, 0, 0))
			assert.Equal(t, [3]float64{2, 2, 2}, v.PixDim)
		})
	}
}

func TestWriteGridRoundTrip(t *testing.T) {
	for _, name := range []string{"group.nii", "group.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tpl := filepath.Join(dir, "template.nii.gz")
			writeNifti(t, tpl, [4]int{3, 2, 2, 4}, ramp)

			g := NewGrid(3, 2, 2)
			for z := 0; z < 2; z++ {
				for y := 0; y < 2; y++ {
					for x := 0; x < 3; x++ {
						g.Set(x, y, z, float64(x*y+z))
					}
				}
			}

			out := filepath.Join(dir, "out", name)
			require.NoError(t, WriteGrid(out, tpl, g))

			back, err := ReadGrid(out)
			require.NoError(t, err)
			assert.Equal(t, g.Data, back.Data)

			v, err := Open(out)
			require.NoError(t, err)
			assert.Equal(t, 1, v.Nt)
			assert.Equal(t, [3]float64{2, 2, 2}, v.PixDim)

			entries, err := os.ReadDir(filepath.Dir(out))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, name, entries[0].Name())
		})
	}
}

func TestWriteGridMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	err := WriteGrid(filepath.Join(dir, "out.nii.gz"), filepath.Join(dir, "absent.nii.gz"), NewGrid(1, 1, 1))
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.nii.gz"))
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput))
}

func TestGrid(t *testing.T) {
	g := NewGrid(2, 3, 4)
	g.Set(1, 2, 3, 7)
	assert.Equal(t, 7.0, g.At(1, 2, 3))

	d := g.Dense()
	rows, cols := d.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 6, cols)
	assert.Equal(t, 7.0, d.At(3, 1+2*2))

	d.Set(0, 0, 5)
	assert.Equal(t, 5.0, g.At(0, 0, 0))
	assert.True(t, g.SameShape(NewGrid(2, 3, 4)))
	assert.False(t, g.SameShape(NewGrid(3, 2, 4)))
}
