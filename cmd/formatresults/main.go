package main

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/results"
)

var all bool

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "formatresults",
		Short: "Label IS-RSA statistics with atlas names and keep FWE-significant parcels",
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().BoolVar(&all, "all", false, "Keep every parcel, not only significant ones")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	inDir := cfg.Path(cfg.Paths.ISRSAResults)
	outDir := cfg.Path(cfg.Paths.ISRSAFormatted)

	wb := results.NewWorkbook()
	for _, task := range cfg.Study.ISRSATasks {
		for _, movie := range cfg.Study.Movies {
			name := results.TaskFile(task, movie)
			in := filepath.Join(inDir, name+".csv")
			if !io.Exists(in) {
				env.Skip(ctx, name, "statistics table missing")
				continue
			}

			stats, err := results.Load(in)
			if err != nil {
				return err
			}
			rows := results.Join(stats, env.Bundle)
			if !all {
				rows = results.Significant(rows, cfg.Alpha)
			}

			if err := results.Write(filepath.Join(outDir, name+".csv"), rows); err != nil {
				return err
			}
			if err := wb.AddSheet(name, rows); err != nil {
				return err
			}
			env.Processed(1)
			env.Log.WithFields(log.Fields{"task": task, "movie": movie, "parcels": len(rows)}).Info("Formatted")
		}
	}

	if wb.Len() == 0 {
		env.Log.Warn("No statistics tables found, workbook not written")
		return nil
	}
	return wb.Save(filepath.Join(outDir, "ISRSA_results.xlsx"))
}
