// Package isc builds subject × subject similarity and distance matrices per
// parcel and summarises them with bootstrap statistics.
package isc

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/gonum/matrix/mat64"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/extract"
	"github.com/KyungWonPark/MovieISC/internal/inference"
	"github.com/KyungWonPark/MovieISC/internal/io"
)

// Movie holds the time-series tables of the subjects available for one movie
type Movie struct {
	Name    string
	PIDs    []string
	Tables  []*mat64.Dense
	Missing []string
}

// LoadMovie reads every subject's table for movie. Subjects without a file
// are reported in Missing and left out.
func LoadMovie(tsDir, movie string, pids []string) (*Movie, error) {
	m := &Movie{Name: movie}
	for _, pid := range pids {
		path := filepath.Join(tsDir, extract.OutputName(pid, movie))
		table, err := io.ReadTimeSeries(path)
		if errors.HasCode(err, errors.CodeMissingInput) {
			m.Missing = append(m.Missing, pid)
			continue
		}
		if err != nil {
			return nil, err
		}
		m.PIDs = append(m.PIDs, pid)
		m.Tables = append(m.Tables, table)
	}
	return m, nil
}

// Parcels returns the number of parcel columns shared by all tables
func (m *Movie) Parcels() (int, error) {
	if len(m.Tables) == 0 {
		return 0, errors.InvalidInput(fmt.Sprintf("%s: no subject time series", m.Name))
	}
	_, n := m.Tables[0].Dims()
	for i, t := range m.Tables {
		if _, c := t.Dims(); c != n {
			return 0, errors.InvalidInput(fmt.Sprintf("%s: subject %s has %d parcels, expected %d", m.Name, m.PIDs[i], c, n))
		}
	}
	return n, nil
}

// Stack gathers column parcel-1 of every table into a subjects × time matrix
func Stack(tables []*mat64.Dense, parcel int) (*mat64.Dense, error) {
	if len(tables) == 0 {
		return nil, errors.InvalidInput("stack: no tables")
	}
	nt, np := tables[0].Dims()
	if parcel < 1 || parcel > np {
		return nil, errors.InvalidInput(fmt.Sprintf("stack: parcel %d outside 1..%d", parcel, np))
	}

	out := mat64.NewDense(len(tables), nt, nil)
	for s, table := range tables {
		r, c := table.Dims()
		if r != nt {
			return nil, errors.InvalidInput(fmt.Sprintf("stack: subject %d has %d time points, expected %d", s, r, nt))
		}
		if c != np {
			return nil, errors.InvalidInput(fmt.Sprintf("stack: subject %d has %d parcels, expected %d", s, c, np))
		}
		for t := 0; t < nt; t++ {
			out.Set(s, t, table.At(t, parcel-1))
		}
	}
	return out, nil
}

// Matrices returns the similarity (r) and distance (1 - r) matrices of the
// stacked time series
func Matrices(pl *calc.PipeLine, stacked *mat64.Dense) (*mat64.SymDense, *mat64.SymDense, error) {
	n, _ := stacked.Dims()
	similarity := mat64.NewSymDense(n, nil)
	if err := pl.Pearson(stacked, similarity); err != nil {
		return nil, nil, err
	}
	distance := mat64.NewSymDense(n, nil)
	if err := pl.Distance(similarity, distance); err != nil {
		return nil, nil, err
	}
	return similarity, distance, nil
}

// ParcelStat is the bootstrap summary of one parcel
type ParcelStat struct {
	Parcel int
	inference.Result
}

// StatsOptions controls the per-parcel bootstrap jobs
type StatsOptions struct {
	Movie     string
	Seed      int64
	N         int
	CIPercent float64
	Workers   int
}

// Stats bootstraps every parcel's similarity matrix concurrently.
// similarity[k-1] is parcel k. Each job seeds its own generator from
// (Seed, Movie, parcel), so the output does not depend on scheduling.
func Stats(ctx context.Context, similarity []mat64.Matrix, opt StatsOptions) ([]ParcelStat, error) {
	out := make([]ParcelStat, len(similarity))

	g, ctx := errgroup.WithContext(ctx)
	if opt.Workers > 0 {
		g.SetLimit(opt.Workers)
	}

	for k := range similarity {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parcel := k + 1
			rng := rand.New(rand.NewSource(inference.SeedFor(opt.Seed, opt.Movie, parcel)))
			res, err := inference.Bootstrap(similarity[k], inference.Options{
				N:         opt.N,
				CIPercent: opt.CIPercent,
				Rand:      rng,
			})
			if err != nil {
				return errors.Wrapf(err, "%s parcel %d", opt.Movie, parcel)
			}
			out[k] = ParcelStat{Parcel: parcel, Result: res}

			log.WithFields(log.Fields{
				"movie":  opt.Movie,
				"parcel": parcel,
				"isc":    res.ISC,
				"p":      res.P,
			}).Debug("Bootstrapped parcel")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SimilarityName is the file name of a parcel's ISC matrix
func SimilarityName(movie string, parcel int) string {
	return fmt.Sprintf("ISC_%s_parcel%d.csv", movie, parcel)
}

// DistanceName is the file name of a parcel's IS-RSA distance matrix
func DistanceName(movie string, parcel int) string {
	return fmt.Sprintf("%s_parcel%d.csv", movie, parcel)
}

// StatsName is the file name of a movie's ISC statistics table
func StatsName(movie string) string {
	return fmt.Sprintf("ISC_%s.csv", movie)
}

// MeanMapName is the file name of a movie's mean-ISC glass brain
func MeanMapName(movie string) string {
	return fmt.Sprintf("Mean_ISC_%s.png", movie)
}
