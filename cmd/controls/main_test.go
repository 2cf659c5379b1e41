package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/behavior"
	"github.com/KyungWonPark/MovieISC/internal/calc"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

func TestControlFigures(t *testing.T) {
	roster := []refdata.Subject{
		{PID: "001", Age: 21, Sex: "F"},
		{PID: "002", Age: 34, Sex: "M"},
		{PID: "003", Age: 25, Sex: "F"},
	}
	age, err := behavior.AgeMatrix(roster)
	require.NoError(t, err)
	sex, err := behavior.SexMatrix(roster)
	require.NoError(t, err)

	figs := controlFigures(age, sex)
	require.Len(t, figs, 2)

	assert.Equal(t, "Control_age", figs[0].stem)
	assert.Equal(t, "age_difference_matrix.png", figs[0].figure)
	assert.Equal(t, "plasma", figs[0].opt.Colormap)
	assert.Equal(t, 13.0, figs[0].opt.VMax)

	assert.Equal(t, "Control_sex", figs[1].stem)
	assert.Equal(t, "binary", figs[1].opt.Colormap)
	assert.Equal(t, 1.0, figs[1].opt.VMax)

	for _, f := range figs {
		assert.NoError(t, calc.Validate(f.m.Data, 0, calc.Tolerance))
	}
}
