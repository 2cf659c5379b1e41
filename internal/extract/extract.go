// Package extract averages 4D movie volumes over atlas parcels.
package extract

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/mask"
)

// Source is a 4D image
type Source interface {
	Shape() (nx, ny, nz, nt int)
	At(x, y, z, t int) float64
}

// TimeSeries returns the time × parcel table of regional means. Column k-1
// holds parcel k; parcels without in-mask voxels are NaN.
func TimeSeries(src Source, parc *mask.Parcellation, workers int) (*mat64.Dense, error) {
	nx, ny, nz, nt := src.Shape()
	px, py, pz := parc.Shape()
	if nx != px || ny != py || nz != pz {
		return nil, errors.InvalidInput(fmt.Sprintf("volume is %dx%dx%d but atlas is %dx%dx%d", nx, ny, nz, px, py, pz))
	}
	if nt < 1 {
		return nil, errors.InvalidInput("volume has no time points")
	}
	if workers < 1 {
		workers = 1
	}

	out := mat64.NewDense(nt, parc.N(), nil)

	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(nt)

	for i := 0; i < workers; i++ {
		go regionalMean(src, parc, out, order, &wg)
	}

	for t := 0; t < nt; t++ {
		order <- t
	}

	wg.Wait()
	close(order)

	return out, nil
}

func regionalMean(src Source, parc *mask.Parcellation, out *mat64.Dense, order <-chan int, wg *sync.WaitGroup) {
	for {
		t, ok := <-order
		if ok {
			for k := 1; k <= parc.N(); k++ {
				voxels := parc.Voxels(k)
				if len(voxels) == 0 {
					out.Set(t, k-1, math.NaN())
					continue
				}

				var acc float64
				for _, v := range voxels {
					acc += src.At(v.X, v.Y, v.Z, t)
				}
				out.Set(t, k-1, acc/float64(len(voxels)))
			}

			wg.Done()
		} else {
			break
		}
	}
}

// Job is one subject-movie extraction
type Job struct {
	Subject string
	Movie   string
	Input   string
	Output  string
}

// Plan enumerates every subject × movie job. pattern holds {pid} and
// {movie} placeholders.
func Plan(pids, movies []string, pattern, outDir string) []Job {
	jobs := make([]Job, 0, len(pids)*len(movies))
	for _, movie := range movies {
		for _, pid := range pids {
			jobs = append(jobs, Job{
				Subject: pid,
				Movie:   movie,
				Input:   Expand(pattern, pid, movie),
				Output:  filepath.Join(outDir, OutputName(pid, movie)),
			})
		}
	}
	return jobs
}

// Expand substitutes {pid} and {movie} in pattern
func Expand(pattern, pid, movie string) string {
	return strings.NewReplacer("{pid}", pid, "{movie}", movie).Replace(pattern)
}

// OutputName is the time-series file name for a subject and movie
func OutputName(pid, movie string) string {
	return fmt.Sprintf("sub%s_%s_Average_ROI.csv", pid, movie)
}
