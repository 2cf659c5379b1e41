package main

import (
	"context"
	"path/filepath"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/behavior"
	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/cli"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/render"
)

func main() {
	cli.Main(cli.NewStageCommand(cli.Stage{
		Name:  "controls",
		Short: "Build age and sex difference matrices",
		Run:   run,
	}))
}

func run(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	dir := cfg.Path(cfg.Paths.ControlMatrices)
	roster := env.Bundle.Roster

	age, err := behavior.AgeMatrix(roster)
	if err != nil {
		return err
	}
	sex, err := behavior.SexMatrix(roster)
	if err != nil {
		return err
	}

	for _, c := range controlFigures(age, sex) {
		if err := calc.Validate(c.m.Data, 0, calc.Tolerance); err != nil {
			return errors.Wrapf(err, "%s", c.stem)
		}
		if err := io.WriteSubjectMatrix(filepath.Join(dir, c.stem+".csv"), c.m); err != nil {
			return err
		}
		if err := render.Matrix(filepath.Join(dir, "visualizations", c.figure), c.m, c.opt); err != nil {
			env.Log.WithError(err).WithField("figure", c.figure).Warn("Failed to draw control matrix")
		}
		env.Processed(1)
	}
	return nil
}

type controlFigure struct {
	stem   string
	figure string
	m      *io.SubjectMatrix
	opt    render.Options
}

func controlFigures(age, sex *io.SubjectMatrix) []controlFigure {
	return []controlFigure{
		{"Control_age", "age_difference_matrix.png", age, render.Options{Title: "Age difference", Colormap: "plasma", VMin: 0, VMax: maxOf(age.Data), DPI: 400}},
		{"Control_sex", "sex_difference_matrix.png", sex, render.Options{Title: "Sex difference", Colormap: "binary", VMin: 0, VMax: 1, DPI: 400}},
	}
}

// maxOf is the colour range top; at least 1 so a uniform roster still renders
func maxOf(m mat64.Matrix) float64 {
	r, c := m.Dims()
	top := 1.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v > top {
				top = v
			}
		}
	}
	return top
}
