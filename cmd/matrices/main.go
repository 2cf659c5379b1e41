package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gonum/matrix/mat64"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/isc"
	"github.com/KyungWonPark/MovieISC/internal/mask"
	"github.com/KyungWonPark/MovieISC/internal/render"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

var (
	movies []string
	npy    bool
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:     "matrices",
		Short:    "Build per-parcel ISC and IS-RSA distance matrices and ISC statistics",
		Upstream: []string{"extract"},
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().StringSliceVar(&movies, "movie", nil, "Movies to process (default all)")
			cmd.Flags().BoolVar(&npy, "npy", false, "Also write .npy copies of the matrices")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	if len(movies) == 0 {
		movies = cfg.Study.Movies
	}

	parc, err := mask.LoadParcellation(cfg.Path(cfg.Paths.Atlas), cfg.Path(cfg.Paths.GroupMask), cfg.Study.Parcels)
	if err != nil {
		return err
	}
	preset, err := cfg.Preset("mean_isc")
	if err != nil {
		return err
	}

	pl := calc.Init(cfg.Workers)
	for _, movie := range movies {
		if err := runMovie(ctx, env, pl, movie, parc.Labels(), preset); err != nil {
			return errors.Wrapf(err, "%s", movie)
		}
	}
	return nil
}

func runMovie(ctx context.Context, env *cli.Env, pl *calc.PipeLine, movie string, labels *volume.Grid, preset config.RenderPreset) error {
	cfg := env.Config
	logger := env.Log.WithField("movie", movie)
	start := time.Now()

	m, err := isc.LoadMovie(cfg.Path(cfg.Paths.TimeSeries), movie, env.Bundle.PIDs())
	if err != nil {
		return err
	}
	for _, pid := range m.Missing {
		env.Skip(ctx, "sub-"+pid+"/"+movie, "time series missing")
	}
	if len(m.PIDs) < 2 {
		return errors.InvalidInput("fewer than two subjects with time series")
	}
	n, err := m.Parcels()
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{"subjects": len(m.PIDs), "parcels": n}).Info("Building matrices")

	simDir := cfg.Path(cfg.Paths.ISCMatrices)
	distDir := cfg.Path(cfg.Paths.DistMatrices)
	similarity := make([]mat64.Matrix, n)
	for k := 1; k <= n; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		stacked, err := isc.Stack(m.Tables, k)
		if err != nil {
			return err
		}
		sim, dist, err := isc.Matrices(pl, stacked)
		if err != nil {
			return errors.Wrapf(err, "parcel %d", k)
		}
		similarity[k-1] = sim

		if err := save(filepath.Join(simDir, isc.SimilarityName(movie, k)), m.PIDs, sim, 1); err != nil {
			return errors.Wrapf(err, "parcel %d similarity", k)
		}
		if err := save(filepath.Join(distDir, isc.DistanceName(movie, k)), m.PIDs, dist, 0); err != nil {
			return errors.Wrapf(err, "parcel %d distance", k)
		}
	}

	stats, err := isc.Stats(ctx, similarity, isc.StatsOptions{
		Movie:     movie,
		Seed:      cfg.Bootstrap.Seed,
		N:         cfg.Bootstrap.N,
		CIPercent: cfg.Bootstrap.CIPercent,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return err
	}
	rows := isc.Table(stats, env.Bundle)
	if err := isc.WriteTable(filepath.Join(cfg.Path(cfg.Paths.ISCResults), isc.StatsName(movie)), rows); err != nil {
		return err
	}

	vol := render.Project(labels, isc.Values(rows), nil, 0)
	err = render.GlassBrain(filepath.Join(cfg.Path(cfg.Paths.ISCVisualization), isc.MeanMapName(movie)), vol, render.Options{
		Title:    "Mean ISC " + movie,
		VMin:     preset.VMin,
		VMax:     preset.VMax,
		Colormap: preset.Colormap,
		DPI:      preset.DPI,
	})
	if err != nil {
		return err
	}

	env.Processed(1)
	logger.WithField("elapsed", time.Since(start).String()).Info("Movie done")
	return nil
}

// save writes m after checking it is symmetric with the given diagonal
func save(path string, pids []string, m mat64.Matrix, diag float64) error {
	if err := calc.Validate(m, diag, calc.Tolerance); err != nil {
		return err
	}
	if err := io.WriteSubjectMatrix(path, &io.SubjectMatrix{PIDs: pids, Data: m}); err != nil {
		return err
	}
	if npy {
		return io.WriteNpy(strings.TrimSuffix(path, ".csv")+".npy", m)
	}
	return nil
}
