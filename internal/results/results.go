// Package results formats the per-parcel IS-RSA statistics produced by the
// external regression models.
package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// Header is the column layout of formatted tables
var Header = []string{"Parcel", "label", "Yeo_7network", "estimate", "statistic", "pval", "pvalFDR", "pvalFWE"}

// Row is one parcel's statistics joined with its atlas entry
type Row struct {
	Parcel    int
	Label     string
	Network   string
	Estimate  float64
	Statistic float64
	P         float64
	PFDR      float64
	PFWE      float64
}

// Load reads a raw statistics table; labels are filled by Join
func Load(path string) ([]Row, error) {
	t, err := io.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require("Parcel", "estimate", "statistic", "pval", "pvalFDR", "pvalFWE"); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	rows := make([]Row, len(t.Rows))
	for i := range t.Rows {
		parcel, err := strconv.Atoi(t.String(i, "Parcel"))
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("%s row %d: bad parcel %q", path, i+1, t.String(i, "Parcel")))
		}
		r := Row{Parcel: parcel}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"estimate", &r.Estimate},
			{"statistic", &r.Statistic},
			{"pval", &r.P},
			{"pvalFDR", &r.PFDR},
			{"pvalFWE", &r.PFWE},
		} {
			if *f.dst, err = t.Float(i, f.col); err != nil {
				return nil, errors.Wrapf(err, "%s", path)
			}
		}
		rows[i] = r
	}
	return rows, nil
}

// Join attaches label and network to every row whose parcel the atlas knows;
// unknown parcels are dropped. Rows come back in parcel order.
func Join(stats []Row, bundle *refdata.Bundle) []Row {
	out := make([]Row, 0, len(stats))
	for _, r := range stats {
		p, ok := bundle.Parcel(r.Parcel)
		if !ok {
			log.WithField("parcel", r.Parcel).Warn("Parcel not in atlas labels, dropped")
			continue
		}
		r.Label = p.Label
		r.Network = p.Network
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Parcel < out[j].Parcel })
	return out
}

// Significant keeps rows with pvalFWE < alpha
func Significant(rows []Row, alpha float64) []Row {
	var out []Row
	for _, r := range rows {
		if !math.IsNaN(r.PFWE) && r.PFWE < alpha {
			out = append(out, r)
		}
	}
	return out
}

func (r Row) record() []string {
	return []string{
		strconv.Itoa(r.Parcel),
		r.Label,
		r.Network,
		io.FormatFloat(r.Estimate),
		io.FormatFloat(r.Statistic),
		io.FormatFloat(r.P),
		io.FormatFloat(r.PFDR),
		io.FormatFloat(r.PFWE),
	}
}

// Write saves formatted rows as CSV
func Write(path string, rows []Row) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, Header)
	for _, r := range rows {
		records = append(records, r.record())
	}
	return io.WriteCSV(path, records)
}

// TaskFile is the statistics file stem of a task and movie, e.g. ISRSA_naming_pre_movie3
func TaskFile(task, movie string) string {
	return fmt.Sprintf("ISRSA_%s_%s", task, movie)
}
