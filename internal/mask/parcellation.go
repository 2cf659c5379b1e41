package mask

import (
	"fmt"
	"math"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

// Voxel is a grid coordinate
type Voxel struct {
	X, Y, Z int
}

// Parcellation is an atlas restricted to a group mask
type Parcellation struct {
	labels  *volume.Grid
	n       int
	members [][]Voxel
}

// NewParcellation assigns every in-mask voxel to its atlas parcel 1..n;
// out-of-mask voxels and label 0 are background
func NewParcellation(atlas, groupMask *volume.Grid, n int) (*Parcellation, error) {
	if groupMask != nil && !atlas.SameShape(groupMask) {
		return nil, errors.InvalidInput(fmt.Sprintf("atlas is %dx%dx%d but group mask is %dx%dx%d",
			atlas.Nx, atlas.Ny, atlas.Nz, groupMask.Nx, groupMask.Ny, groupMask.Nz))
	}

	p := &Parcellation{
		labels:  volume.NewGrid(atlas.Nx, atlas.Ny, atlas.Nz),
		n:       n,
		members: make([][]Voxel, n+1),
	}

	for z := 0; z < atlas.Nz; z++ {
		for y := 0; y < atlas.Ny; y++ {
			for x := 0; x < atlas.Nx; x++ {
				if groupMask != nil && groupMask.At(x, y, z) == 0 {
					continue
				}
				k := int(math.Round(atlas.At(x, y, z)))
				if k < 1 {
					continue
				}
				if k > n {
					return nil, errors.InvalidInput(fmt.Sprintf("atlas label %d exceeds %d parcels", k, n))
				}
				p.labels.Set(x, y, z, float64(k))
				p.members[k] = append(p.members[k], Voxel{x, y, z})
			}
		}
	}

	return p, nil
}

// N returns the number of parcels the atlas defines
func (p *Parcellation) N() int {
	return p.n
}

// Parcels lists the parcels with at least one in-mask voxel
func (p *Parcellation) Parcels() []int {
	var out []int
	for k := 1; k <= p.n; k++ {
		if len(p.members[k]) > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Voxels returns the in-mask voxels of parcel k
func (p *Parcellation) Voxels(k int) []Voxel {
	if k < 1 || k > p.n {
		return nil
	}
	return p.members[k]
}

// Contains reports whether (x, y, z) belongs to parcel k
func (p *Parcellation) Contains(k, x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || x >= p.labels.Nx || y >= p.labels.Ny || z >= p.labels.Nz {
		return false
	}
	return int(p.labels.At(x, y, z)) == k
}

// Labels returns the masked label volume
func (p *Parcellation) Labels() *volume.Grid {
	return p.labels
}

// Shape returns the grid dimensions
func (p *Parcellation) Shape() (int, int, int) {
	return p.labels.Nx, p.labels.Ny, p.labels.Nz
}

// LoadParcellation reads the atlas and group mask volumes. An empty
// groupMaskPath uses the whole atlas.
func LoadParcellation(atlasPath, groupMaskPath string, n int) (*Parcellation, error) {
	atlas, err := volume.ReadGrid(atlasPath)
	if err != nil {
		return nil, err
	}
	var gm *volume.Grid
	if groupMaskPath != "" {
		if gm, err = volume.ReadGrid(groupMaskPath); err != nil {
			return nil, err
		}
	}
	return NewParcellation(atlas, gm, n)
}
