package main

import (
	"context"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/extract"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/mask"
	"github.com/KyungWonPark/MovieISC/internal/render"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

var (
	overwrite bool
	movies    []string
	subjects  []string
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:     "extract",
		Short:    "Average 4D movie volumes over atlas parcels",
		Upstream: []string{"groupmask"},
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Recompute existing outputs")
			cmd.Flags().StringSliceVar(&movies, "movie", nil, "Movies to process (default all)")
			cmd.Flags().StringSliceVar(&subjects, "subject", nil, "Subjects to process (default roster)")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config

	parc, err := mask.LoadParcellation(cfg.Path(cfg.Paths.Atlas), cfg.Path(cfg.Paths.GroupMask), cfg.Study.Parcels)
	if err != nil {
		return err
	}

	outDir := cfg.Path(cfg.Paths.TimeSeries)
	overview := filepath.Join(filepath.Dir(outDir), "CorticalParcels_Brainnetome.png")
	if overwrite || !io.Exists(overview) {
		if err := render.Atlas(overview, parc.Labels(), parc.N(), render.Options{Title: "Brainnetome Parcellation"}); err != nil {
			env.Log.WithError(err).Warn("Failed to draw atlas overview")
		}
	}

	pids := subjects
	if len(pids) == 0 {
		pids = env.Bundle.PIDs()
	}
	if len(movies) == 0 {
		movies = cfg.Study.Movies
	}

	for _, job := range extract.Plan(pids, movies, cfg.Path(cfg.Paths.MovieVolume), outDir) {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := env.Log.WithFields(log.Fields{"subject": job.Subject, "movie": job.Movie})
		item := "sub-" + job.Subject + "/" + job.Movie

		if !overwrite && io.Exists(job.Output) {
			logger.Debug("Time series exists, skipping")
			continue
		}

		start := time.Now()
		err := extractOne(job, parc, cfg.Workers)
		switch {
		case errors.HasCode(err, errors.CodeMissingInput):
			env.Skip(ctx, item, "4D volume missing")
			continue
		case errors.HasCode(err, errors.CodeInvalidInput):
			env.Skip(ctx, item, err.Error())
			continue
		case err != nil:
			return errors.Wrapf(err, "%s", item)
		}

		env.Processed(1)
		logger.WithField("elapsed", time.Since(start).String()).Info("Time series written")
	}
	return nil
}

func extractOne(job extract.Job, parc *mask.Parcellation, workers int) error {
	v, err := volume.Open(job.Input)
	if err != nil {
		return err
	}
	defer v.Close()

	ts, err := extract.TimeSeries(v, parc, workers)
	if err != nil {
		return err
	}
	return io.WriteTimeSeries(job.Output, ts)
}
