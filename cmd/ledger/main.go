package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
)

var (
	stage string
	limit int
	skips bool
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:     "ledger",
		Short:    "List recent stage runs and their skipped items",
		NoBundle: true,
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&stage, "stage", "", "Only runs of this stage")
			cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
			cmd.Flags().BoolVar(&skips, "skips", false, "Also list skipped items")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	if env.Ledger == nil {
		return errors.ConfigInvalid("ledgerPath is not configured")
	}
	runs, err := env.Ledger.Runs(ctx, stage, limit+1)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tBUNDLE\tSTARTED\tSTATUS\tPROCESSED\tSKIPPED\tMESSAGE")
	shown := 0
	for _, r := range runs {
		if r.ID == env.RunID() || shown == limit {
			continue
		}
		shown++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Stage, r.BundleVersion, r.StartedAt, r.Status, r.Processed, r.Skipped, r.Message)
		if !skips {
			continue
		}
		items, err := env.Ledger.Skips(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, s := range items {
			fmt.Fprintf(w, "\t  %s\t%s\n", s.Item, s.Reason)
		}
	}
	return w.Flush()
}
