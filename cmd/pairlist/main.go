package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/pairs"
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "pairlist",
		Short: "Enumerate ordered subject pairs labelled Real or Pseudo",
		Run:   run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	list, err := pairs.Build(env.Bundle.RealPairs, env.Bundle.PIDs())
	if err != nil {
		return err
	}

	nReal := 0
	for _, p := range list {
		if p.Type == pairs.Real {
			nReal++
		}
	}

	out := env.Config.Path(env.Config.Paths.PairList)
	if err := pairs.Write(out, list); err != nil {
		return err
	}
	env.Processed(len(list))
	env.Log.WithFields(log.Fields{"pairs": len(list), "real": nReal, "path": out}).Info("Pair list written")
	return nil
}
