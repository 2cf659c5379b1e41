// Package reshape converts labelled subject matrices into long tables keyed
// by subject pair, and back.
package reshape

import (
	"fmt"
	"math"
	"strings"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/pairs"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// Value column names
const (
	Correlation = "Correlation"
	Distance    = "Distance"
)

// Row is one pair of the long table
type Row struct {
	PairType string
	Subject1 string
	Subject2 string
	Value    float64
}

// Flatten emits one row per pair-list entry with the matrix value at
// [Subject1, Subject2]. A subject absent from the matrix is a lookup mismatch.
func Flatten(m *io.SubjectMatrix, list []pairs.Pair) ([]Row, error) {
	index := make(map[string]int, len(m.PIDs))
	for i, pid := range m.PIDs {
		index[refdata.NormalizePID(pid)] = i
	}

	rows := make([]Row, 0, len(list))
	for _, p := range list {
		s1 := refdata.NormalizePID(p.Subject1)
		s2 := refdata.NormalizePID(p.Subject2)
		i, ok1 := index[s1]
		j, ok2 := index[s2]
		if !ok1 || !ok2 {
			return nil, errors.LookupMismatch(fmt.Sprintf("pair %s_%s not found in matrix", s1, s2))
		}
		rows = append(rows, Row{
			PairType: p.Type,
			Subject1: s1,
			Subject2: s2,
			Value:    m.Data.At(i, j),
		})
	}
	return rows, nil
}

// Rebuild is the inverse of Flatten over pids. Cells without a row are NaN
// except the diagonal, which is set to diagonal.
func Rebuild(rows []Row, pids []string, diagonal float64) (*io.SubjectMatrix, error) {
	n := len(pids)
	index := make(map[string]int, n)
	for i, pid := range pids {
		index[refdata.NormalizePID(pid)] = i
	}

	data := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data.Set(i, j, math.NaN())
		}
		data.Set(i, i, diagonal)
	}

	for _, r := range rows {
		i, ok1 := index[refdata.NormalizePID(r.Subject1)]
		j, ok2 := index[refdata.NormalizePID(r.Subject2)]
		if !ok1 || !ok2 {
			return nil, errors.LookupMismatch(fmt.Sprintf("pair %s_%s not among subjects", r.Subject1, r.Subject2))
		}
		data.Set(i, j, r.Value)
	}

	out := make([]string, n)
	for i, pid := range pids {
		out[i] = refdata.NormalizePID(pid)
	}
	return &io.SubjectMatrix{PIDs: out, Data: data}, nil
}

// Write saves rows with the given value column name
func Write(path, valueColumn string, rows []Row) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"Pair_Type", "Subject1", "Subject2", valueColumn})
	for _, r := range rows {
		records = append(records, []string{r.PairType, r.Subject1, r.Subject2, io.FormatFloat(r.Value)})
	}
	return io.WriteCSV(path, records)
}

// Read loads a long table written by Write
func Read(path string) ([]Row, string, error) {
	records, err := io.ReadCSV(path)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 || len(records[0]) != 4 || strings.TrimSpace(records[0][0]) != "Pair_Type" {
		return nil, "", errors.InvalidInput(path + ": not a pair table")
	}

	rows := make([]Row, 0, len(records)-1)
	for line, rec := range records[1:] {
		v, err := io.ParseFloat(rec[3])
		if err != nil {
			return nil, "", errors.InvalidInput(fmt.Sprintf("%s line %d: %v", path, line+2, err))
		}
		rows = append(rows, Row{PairType: rec[0], Subject1: rec[1], Subject2: rec[2], Value: v})
	}
	return rows, records[0][3], nil
}

// ISCName is the long table of a parcel's ISC matrix
func ISCName(movie string, parcel int) string {
	return fmt.Sprintf("ISCdf_full_%s_parcel%d.csv", movie, parcel)
}

// DistanceName is the long table of a parcel's IS-RSA distance matrix
func DistanceName(movie string, parcel int) string {
	return fmt.Sprintf("ISRSAdf_full_%s_parcel%d.csv", movie, parcel)
}

// BehaviorName is the long table of a control or behavioural matrix, e.g. Control_age or Naming_pre
func BehaviorName(stem string) string {
	return stem + "_df_full.csv"
}
