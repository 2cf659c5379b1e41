package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/extract"
	"github.com/KyungWonPark/MovieISC/internal/mask"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

var threshold float64

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "groupmask",
		Short: "Intersect subject brain masks into the group mask",
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().Float64Var(&threshold, "threshold", 0, "Subject fraction a voxel needs (default from config)")
		},
		Run: run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	thr := cfg.MaskThreshold
	if threshold > 0 {
		thr = threshold
	}

	pids := env.Bundle.PIDs()
	paths := make([]string, len(pids))
	for i, pid := range pids {
		paths[i] = extract.Expand(cfg.Path(cfg.Paths.SubjectMask), pid, "")
	}

	pl := calc.Init(cfg.Workers)
	env.Log.WithFields(log.Fields{"subjects": len(paths), "threshold": thr}).Info("Building group mask")
	g, err := mask.GroupMask(pl, paths, thr, volume.ReadGrid)
	if err != nil {
		return err
	}

	out := cfg.Path(cfg.Paths.GroupMask)
	if err := volume.WriteGrid(out, paths[0], g); err != nil {
		return err
	}
	env.Processed(len(paths))
	env.Log.WithFields(log.Fields{"voxels": mask.Count(g), "path": out}).Info("Group mask written")
	return nil
}
