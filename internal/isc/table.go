package isc

import (
	"strconv"

	"github.com/KyungWonPark/MovieISC/internal/inference"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// StatsHeader is the column layout of ISC_movie{m}.csv
var StatsHeader = []string{"parcel", "label", "ISC", "p", "p_fwe", "p_fdr", "ci_low", "ci_high"}

// Row is one line of the ISC statistics table
type Row struct {
	Parcel int
	Label  string
	ISC    float64
	P      float64
	PFWE   float64
	PFDR   float64
	CILow  float64
	CIHigh float64
}

// Table applies the corrections across parcels and attaches atlas labels
func Table(stats []ParcelStat, bundle *refdata.Bundle) []Row {
	p := make([]float64, len(stats))
	for i, s := range stats {
		p[i] = s.P
	}
	fwe := inference.Bonferroni(p)
	fdr := inference.BenjaminiHochberg(p)

	rows := make([]Row, len(stats))
	for i, s := range stats {
		label := ""
		if parcel, ok := bundle.Parcel(s.Parcel); ok {
			label = parcel.Label
		}
		rows[i] = Row{
			Parcel: s.Parcel,
			Label:  label,
			ISC:    s.ISC,
			P:      s.P,
			PFWE:   fwe[i],
			PFDR:   fdr[i],
			CILow:  s.CILow,
			CIHigh: s.CIHigh,
		}
	}
	return rows
}

// WriteTable saves rows as CSV
func WriteTable(path string, rows []Row) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, StatsHeader)
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.Parcel),
			r.Label,
			io.FormatFloat(r.ISC),
			io.FormatFloat(r.P),
			io.FormatFloat(r.PFWE),
			io.FormatFloat(r.PFDR),
			io.FormatFloat(r.CILow),
			io.FormatFloat(r.CIHigh),
		})
	}
	return io.WriteCSV(path, records)
}

// Values returns the per-parcel ISC keyed by parcel index
func Values(rows []Row) map[int]float64 {
	out := make(map[int]float64, len(rows))
	for _, r := range rows {
		out[r.Parcel] = r.ISC
	}
	return out
}
