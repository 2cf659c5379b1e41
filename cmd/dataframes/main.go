package main

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/behavior"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/isc"
	"github.com/KyungWonPark/MovieISC/internal/pairs"
	"github.com/KyungWonPark/MovieISC/internal/reshape"
)

// Table kinds
const (
	kindISC      = "isc"
	kindDistance = "distance"
	kindControl  = "control"
	kindBehavior = "behavior"
)

var (
	kinds  []string
	movies []string
)

// conversion is one matrix file turned into one long table
type conversion struct {
	item   string
	input  string
	output string
	column string
}

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:     "dataframes",
		Short:    "Reshape subject matrices into long tables keyed by subject pair",
		Upstream: []string{"pairlist", "matrices", "controls", "behavioral"},
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().StringSliceVar(&kinds, "kind", []string{kindISC, kindDistance, kindControl, kindBehavior}, "Table kinds to build")
			cmd.Flags().StringSliceVar(&movies, "movie", nil, "Movies to process (default all)")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	list, err := pairs.Load(cfg.Path(cfg.Paths.PairList))
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		movies = cfg.Study.Movies
	}

	for _, kind := range kinds {
		convs, err := plan(env, kind)
		if err != nil {
			return err
		}
		env.Log.WithFields(log.Fields{"kind": kind, "tables": len(convs)}).Info("Reshaping")

		for _, c := range convs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !io.Exists(c.input) {
				env.Skip(ctx, c.item, "matrix missing")
				continue
			}
			if err := convert(c, list); err != nil {
				return errors.Wrapf(err, "%s", c.item)
			}
			env.Processed(1)
		}
	}
	return nil
}

func plan(env *cli.Env, kind string) ([]conversion, error) {
	cfg := env.Config
	var out []conversion

	switch kind {
	case kindISC, kindDistance:
		for _, movie := range movies {
			for k := 1; k <= cfg.Study.Parcels; k++ {
				c := conversion{item: fmt.Sprintf("%s/%s/parcel%d", kind, movie, k)}
				if kind == kindISC {
					c.input = filepath.Join(cfg.Path(cfg.Paths.ISCMatrices), isc.SimilarityName(movie, k))
					c.output = filepath.Join(cfg.Path(cfg.Paths.ISCDataframes), reshape.ISCName(movie, k))
					c.column = reshape.Correlation
				} else {
					c.input = filepath.Join(cfg.Path(cfg.Paths.DistMatrices), isc.DistanceName(movie, k))
					c.output = filepath.Join(cfg.Path(cfg.Paths.DistDataframes), reshape.DistanceName(movie, k))
					c.column = reshape.Distance
				}
				out = append(out, c)
			}
		}
	case kindControl:
		for _, stem := range []string{"Control_age", "Control_sex"} {
			out = append(out, conversion{
				item:   stem,
				input:  filepath.Join(cfg.Path(cfg.Paths.ControlMatrices), stem+".csv"),
				output: filepath.Join(cfg.Path(cfg.Paths.ControlDataframes), reshape.BehaviorName(stem)),
				column: reshape.Distance,
			})
		}
	case kindBehavior:
		for _, measure := range []string{"Features", "Naming"} {
			for _, phase := range behavior.Phases {
				stem := fmt.Sprintf("%s_%s", measure, phase)
				out = append(out, conversion{
					item:   stem,
					input:  filepath.Join(cfg.Path(cfg.Paths.ControlMatrices), behavior.MatrixName(measure, phase)),
					output: filepath.Join(cfg.Path(cfg.Paths.BehaviorDataframes), reshape.BehaviorName(stem)),
					column: reshape.Distance,
				})
			}
		}
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown table kind %q", kind))
	}
	return out, nil
}

func convert(c conversion, list []pairs.Pair) error {
	m, err := io.ReadSubjectMatrix(c.input)
	if err != nil {
		return err
	}
	rows, err := reshape.Flatten(m, list)
	if err != nil {
		return err
	}
	return reshape.Write(c.output, c.column, rows)
}
