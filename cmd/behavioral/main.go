package main

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/behavior"
	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "behavioral",
		Short: "Reduce item-level naming and feature RDMs to subject matrices",
		Run:   run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	ids := behavior.ItemIDs(env.Bundle.Roster, cfg.Study.Items)

	for _, src := range []struct {
		measure  string
		path     string
		variable string
	}{
		{"Features", cfg.Path(cfg.Paths.FeaturesRDM), cfg.Paths.FeaturesVariable},
		{"Naming", cfg.Path(cfg.Paths.NamingRDM), cfg.Paths.NamingVariable},
	} {
		logger := env.Log.WithFields(log.Fields{"measure": src.measure, "path": src.path})

		raw, err := behavior.LoadRaw(src.path, src.variable)
		if err != nil {
			return errors.Wrapf(err, "%s RDM", src.measure)
		}
		rows, cols := raw.Dims()
		logger.WithFields(log.Fields{"rows": rows, "cols": cols, "items": len(ids)}).Info("Reconstructing RDM")

		byPhase, err := behavior.ReconstructRDM(raw, ids, env.Bundle.Roster)
		if err != nil {
			return errors.Wrapf(err, "%s RDM", src.measure)
		}
		for _, phase := range behavior.Phases {
			out := filepath.Join(cfg.Path(cfg.Paths.ControlMatrices), behavior.MatrixName(src.measure, phase))
			if err := calc.Validate(byPhase[phase].Data, 0, calc.Tolerance); err != nil {
				return errors.Wrapf(err, "%s %s RDM", src.measure, phase)
			}
			if err := io.WriteSubjectMatrix(out, byPhase[phase]); err != nil {
				return err
			}
			env.Processed(1)
		}
	}
	return nil
}
