// Package volume reads and writes NIfTI-1 images (.nii and .nii.gz).
package volume

import (
	"fmt"
	stdio "io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KyungWonPark/nifti"
	gzip "github.com/klauspost/pgzip"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

const (
	headerSize = 348
	// header plus the 4-byte empty extension block
	dataOffset = 352
	float32DT  = 16
)

// Volume is an opened 3D or 4D image
type Volume struct {
	Nx, Ny, Nz, Nt int
	PixDim         [3]float64

	img *nifti.Nifti1Image
}

// Open loads an image. The file must be a little-endian single-file NIfTI-1
// image, optionally gzip-compressed.
func Open(path string) (*Volume, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.MissingInput(path, err)
	}

	if _, err := loadHeader(path); err != nil {
		return nil, err
	}

	var img nifti.Nifti1Image
	if err := guard(path, func() { img.LoadImage(path, true) }); err != nil {
		return nil, err
	}

	d := img.GetDims()
	if d[3] < 1 {
		d[3] = 1
	}
	pix := img.GetHeader().Pixdim

	v := &Volume{
		Nx:     d[0],
		Ny:     d[1],
		Nz:     d[2],
		Nt:     d[3],
		PixDim: [3]float64{float64(pix[1]), float64(pix[2]), float64(pix[3])},
		img:    &img,
	}

	// the loader keeps whatever follows vox_offset, so a short file only
	// shows up on access
	if err := guard(path, func() { v.At(v.Nx-1, v.Ny-1, v.Nz-1, v.Nt-1) }); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("%s: truncated voxel data", path))
	}

	return v, nil
}

// loadHeader reads the header through the library and rejects anything it
// would misread
func loadHeader(path string) (nifti.Nifti1Header, error) {
	var h nifti.Nifti1Header
	if err := guard(path, func() { h.LoadHeader(path) }); err != nil {
		return h, err
	}

	if h.SizeofHdr != headerSize || h.Dim[0] < 1 || h.Dim[0] > 7 {
		return h, errors.InvalidInput(fmt.Sprintf("%s: not a little-endian NIfTI-1 file", path))
	}
	switch h.Bitpix {
	case 8, 16, 32, 64:
	default:
		return h, errors.InvalidInput(fmt.Sprintf("%s: unsupported bitpix %d", path, h.Bitpix))
	}
	for i := 1; i <= 3; i++ {
		if h.Dim[i] < 1 {
			return h, errors.InvalidInput(fmt.Sprintf("%s: empty dimension %d", path, i))
		}
	}
	return h, nil
}

// guard turns a panic inside the NIfTI library into an InvalidInput error
func guard(path string, f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InvalidInput(fmt.Sprintf("%s: unreadable NIfTI image: %v", path, r))
		}
	}()
	f()
	return nil
}

// At returns the voxel value at (x, y, z) and time point t
func (v *Volume) At(x, y, z, t int) float64 {
	return float64(v.img.GetAt(uint32(x), uint32(y), uint32(z), uint32(t)))
}

// Frame copies time point t into a Grid
func (v *Volume) Frame(t int) *Grid {
	g := NewGrid(v.Nx, v.Ny, v.Nz)
	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				g.Set(x, y, z, v.At(x, y, z, t))
			}
		}
	}
	return g
}

// Close drops the voxel data
func (v *Volume) Close() error {
	v.img = nil
	return nil
}

// ReadGrid loads the first frame of an image
func ReadGrid(path string) (*Grid, error) {
	v, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	return v.Frame(0), nil
}

// WriteGrid saves g as a single-frame float32 image whose orientation and
// spacing come from templatePath. A .gz suffix on path selects gzip output.
func WriteGrid(path, templatePath string, g *Grid) error {
	if _, err := os.Stat(templatePath); err != nil {
		return errors.MissingInput(templatePath, err)
	}
	h, err := loadHeader(templatePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.IOError("creating "+filepath.Dir(path), err)
	}

	newImg := nifti.NewImg(g.Nx, g.Ny, g.Nz, 1)
	newImg.SetNewHeader(frameHeader(h, g))

	for z := 0; z < g.Nz; z++ {
		for y := 0; y < g.Ny; y++ {
			for x := 0; x < g.Nx; x++ {
				newImg.SetAt(uint32(x), uint32(y), uint32(z), 0, float32(g.At(x, y, z)))
			}
		}
	}

	// Save always appends .gz
	stem := strings.TrimSuffix(path, ".gz") + ".tmp"
	saved := stem + ".gz"
	if err := guard(saved, func() { newImg.Save(stem) }); err != nil {
		os.Remove(saved)
		return errors.IOError("saving "+path, err)
	}

	if strings.HasSuffix(path, ".gz") {
		return rename(saved, path)
	}
	defer os.Remove(saved)
	return inflate(saved, path)
}

// frameHeader adapts a template header to a single float32 frame of g
func frameHeader(h nifti.Nifti1Header, g *Grid) nifti.Nifti1Header {
	h.Dim = [8]int16{3, int16(g.Nx), int16(g.Ny), int16(g.Nz), 1, 1, 1, 1}
	h.Datatype = float32DT
	h.Bitpix = 32
	h.VoxOffset = dataOffset
	h.SclSlope = 1
	h.SclInter = 0
	h.Magic = [4]byte{'n', '+', '1', 0}
	return h
}

func rename(from, to string) error {
	if _, err := os.Stat(from); err != nil {
		return errors.IOError("saving "+to, err)
	}
	if err := os.Rename(from, to); err != nil {
		return errors.IOError("renaming into "+to, err)
	}
	return nil
}

// inflate decompresses from into to through a temporary file
func inflate(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return errors.IOError("saving "+to, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return errors.IOError("inflating "+from, err)
	}
	defer zr.Close()

	tmp := to + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.IOError("creating "+to, err)
	}
	if _, err := stdio.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(tmp)
		return errors.IOError("inflating "+from, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return errors.IOError("writing "+to, err)
	}
	return rename(tmp, to)
}

// Shape returns nx, ny, nz, nt
func (v *Volume) Shape() (int, int, int, int) {
	return v.Nx, v.Ny, v.Nz, v.Nt
}
