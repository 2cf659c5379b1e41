package main

import (
	"fmt"
	"strconv"

	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
)

// parcelValues reads the preset's value and p columns keyed by parcel. Without
// a parcel column row i is parcel i+1. pvals is nil when the preset has no
// p column.
func parcelValues(t *io.Table, preset config.RenderPreset) (values, pvals map[int]float64, err error) {
	cols := []string{preset.ValueColumn}
	if preset.PColumn != "" {
		cols = append(cols, preset.PColumn)
	}
	if preset.ParcelColumn != "" {
		cols = append(cols, preset.ParcelColumn)
	}
	if err := t.Require(cols...); err != nil {
		return nil, nil, err
	}

	values = make(map[int]float64, len(t.Rows))
	if preset.PColumn != "" {
		pvals = make(map[int]float64, len(t.Rows))
	}
	for i := range t.Rows {
		parcel := i + 1
		if preset.ParcelColumn != "" {
			if parcel, err = strconv.Atoi(t.String(i, preset.ParcelColumn)); err != nil {
				return nil, nil, errors.InvalidInput(fmt.Sprintf("row %d: bad parcel %q", i+1, t.String(i, preset.ParcelColumn)))
			}
		}
		if values[parcel], err = t.Float(i, preset.ValueColumn); err != nil {
			return nil, nil, err
		}
		if pvals != nil {
			if pvals[parcel], err = t.Float(i, preset.PColumn); err != nil {
				return nil, nil, err
			}
		}
	}
	return values, pvals, nil
}
