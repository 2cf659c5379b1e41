package main

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/mask"
	"github.com/KyungWonPark/MovieISC/internal/render"
	"github.com/KyungWonPark/MovieISC/internal/results"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

var presets []string

// figure is one statistics table drawn as one glass brain
type figure struct {
	item   string
	input  string
	output string
	title  string
}

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "visualize",
		Short: "Draw thresholded glass brains of the ANOVA and IS-RSA statistics",
		Flags: func(cmd *cobra.Command) {
			cmd.Flags().StringSliceVar(&presets, "preset", []string{"isrsa", "anova"}, "Render presets to draw")
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
	labels := parc.Labels()

	for _, name := range presets {
		preset, err := cfg.Preset(name)
		if err != nil {
			return err
		}
		figs, err := plan(cfg, name)
		if err != nil {
			return err
		}
		for _, f := range figs {
			if !io.Exists(f.input) {
				env.Skip(ctx, f.item, "statistics table missing")
				continue
			}
			if err := draw(f, labels, preset); err != nil {
				return errors.Wrapf(err, "%s", f.item)
			}
			env.Processed(1)
			env.Log.WithFields(log.Fields{"preset": name, "figure": f.output}).Info("Glass brain written")
		}
	}
	return nil
}

func plan(cfg *config.Config, preset string) ([]figure, error) {
	switch preset {
	case "anova":
		return []figure{{
			item:   "anova",
			input:  cfg.Path(cfg.Paths.ANOVAResults),
			output: filepath.Join(cfg.Path(cfg.Paths.ISCVisualization), "ANOVA_ISC_movie_comparison.png"),
			title:  "ISC movie comparison (F)",
		}}, nil
	case "isrsa":
		var figs []figure
		for _, task := range cfg.Study.ISRSATasks {
			for _, movie := range cfg.Study.Movies {
				name := results.TaskFile(task, movie)
				figs = append(figs, figure{
					item:   name,
					input:  filepath.Join(cfg.Path(cfg.Paths.ISRSAResults), name+".csv"),
					output: filepath.Join(cfg.Path(cfg.Paths.ISRSAVisualization), name+"_pFWE005.png"),
					title:  fmt.Sprintf("IS-RSA %s %s", task, movie),
				})
			}
		}
		return figs, nil
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("no figures defined for preset %q", preset))
	}
}

func draw(f figure, labels *volume.Grid, preset config.RenderPreset) error {
	t, err := io.ReadTable(f.input)
	if err != nil {
		return err
	}
	values, pvals, err := parcelValues(t, preset)
	if err != nil {
		return err
	}
	vol := render.Project(labels, values, pvals, preset.Threshold)
	return render.GlassBrain(f.output, vol, render.Options{
		Title:     f.title,
		VMin:      preset.VMin,
		VMax:      preset.VMax,
		Colormap:  preset.Colormap,
		Threshold: preset.Threshold,
		DPI:       preset.DPI,
	})
}
