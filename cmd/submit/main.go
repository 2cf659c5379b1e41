package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/batch"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
)

var (
	stages []string
	binDir string
	dryRun bool
)

// stages submitted one job per movie
var perMovie = map[string]bool{"matrices": true}

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:     "submit",
		Short:    "Submit pipeline stages to the cluster with qsub",
		NoBundle: true,
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().StringSliceVar(&stages, "stage", []string{"extract"}, "Stages to submit, as named in the jobs section")
			cmd.Flags().StringVar(&binDir, "bin", "", "Directory holding the stage binaries (default PATH)")
			cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the qsub lines without submitting")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	var subs []batch.Submission
	for _, stage := range stages {
		job, ok := cfg.Jobs[stage]
		if !ok {
			return errors.ConfigInvalid(fmt.Sprintf("no job configured for stage %q", stage))
		}
		binary := job.Command
		if binDir != "" {
			binary = filepath.Join(binDir, binary)
		}
		if perMovie[stage] {
			subs = append(subs, batch.PerMovie(stage, binary, env.ConfigPath, cfg.Study.Movies, job)...)
		} else {
			subs = append(subs, batch.Single(stage, binary, env.ConfigPath, job))
		}
	}

	ids, err := batch.Submit(ctx, subs, batch.Qsub, dryRun)
	env.Processed(len(ids))
	return err
}
