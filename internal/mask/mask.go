// Package mask builds the group brain mask and the atlas parcellation restricted to it.
package mask

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

// DefaultThreshold is the subject fraction a voxel needs to enter the group mask
const DefaultThreshold = 0.8

// Loader reads one subject mask
type Loader func(path string) (*volume.Grid, error)

// GroupMask intersects per-subject binary masks: a voxel is kept when it is
// non-zero in at least threshold of them, and only the largest connected
// cluster of kept voxels survives. Any missing mask aborts.
func GroupMask(pl *calc.PipeLine, paths []string, threshold float64, load Loader) (*volume.Grid, error) {
	if len(paths) == 0 {
		return nil, errors.InvalidInput("group mask: no subject masks")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("group mask: threshold %g outside (0, 1]", threshold))
	}
	if load == nil {
		load = volume.ReadGrid
	}

	var coverage *volume.Grid
	for i, path := range paths {
		m, err := load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "subject mask %s", path)
		}
		if coverage == nil {
			coverage = volume.NewGrid(m.Nx, m.Ny, m.Nz)
		} else if !coverage.SameShape(m) {
			return nil, errors.InvalidInput(fmt.Sprintf("subject mask %s is %dx%dx%d, expected %dx%dx%d",
				path, m.Nx, m.Ny, m.Nz, coverage.Nx, coverage.Ny, coverage.Nz))
		}

		binarize(m)
		if err := pl.Acc(m.Dense(), coverage.Dense()); err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{
			"mask":  path,
			"count": i + 1,
			"total": len(paths),
		}).Debug("Accumulated subject mask")
	}

	fraction := volume.NewGrid(coverage.Nx, coverage.Ny, coverage.Nz)
	if err := pl.Avg(coverage.Dense(), fraction.Dense(), float64(len(paths))); err != nil {
		return nil, err
	}

	group := volume.NewGrid(coverage.Nx, coverage.Ny, coverage.Nz)
	if err := pl.Binarize(fraction.Dense(), group.Dense(), threshold); err != nil {
		return nil, err
	}

	largest, clusters := LargestComponent(group)
	if clusters == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("group mask: no voxel reaches threshold %g", threshold))
	}
	if clusters > 1 {
		log.WithFields(log.Fields{
			"clusters": clusters,
			"dropped":  Count(group) - Count(largest),
		}).Info("Kept largest connected component of group mask")
	}

	return largest, nil
}

// binarize maps any non-zero voxel to 1 in place
func binarize(g *volume.Grid) {
	for i, v := range g.Data {
		if v != 0 {
			g.Data[i] = 1
		}
	}
}

// Count returns the number of non-zero voxels
func Count(g *volume.Grid) int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}
