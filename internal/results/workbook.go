package results

import (
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
)

// Workbook collects formatted tables, one sheet each
type Workbook struct {
	f      *excelize.File
	sheets int
}

// NewWorkbook returns an empty workbook
func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// AddSheet writes rows to a new sheet; names are truncated to Excel's 31 characters
func (w *Workbook) AddSheet(name string, rows []Row) error {
	if len(name) > 31 {
		name = name[:31]
	}

	idx, err := w.f.NewSheet(name)
	if err != nil {
		return errors.IOError("creating sheet "+name, err)
	}
	if w.sheets == 0 {
		w.f.SetActiveSheet(idx)
		if err := w.f.DeleteSheet("Sheet1"); err != nil {
			return errors.IOError("removing default sheet", err)
		}
	}
	w.sheets++

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.f.SetCellValue(name, cell, h); err != nil {
			return errors.IOError("writing sheet "+name, err)
		}
	}

	for r, row := range rows {
		values := []interface{}{row.Parcel, row.Label, row.Network,
			cellValue(row.Estimate), cellValue(row.Statistic), cellValue(row.P), cellValue(row.PFDR), cellValue(row.PFWE)}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := w.f.SetCellValue(name, cell, v); err != nil {
				return errors.IOError("writing sheet "+name, err)
			}
		}
	}
	return nil
}

// cellValue leaves NaN cells empty
func cellValue(v float64) interface{} {
	if math.IsNaN(v) {
		return ""
	}
	return v
}

// Len is the number of sheets added
func (w *Workbook) Len() int {
	return w.sheets
}

// Sheets returns the sheet names in order
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// Save writes the workbook atomically and releases it
func (w *Workbook) Save(path string) error {
	defer w.f.Close()
	return io.WriteAtomic(path, func(out io.Writer) error {
		_, err := w.f.WriteTo(out)
		return err
	})
}
