package io

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// IndexColumn is the header of the row-label column in subject matrices
const IndexColumn = "PID"

// SubjectMatrix is a square matrix labelled by subject PIDs on both axes
type SubjectMatrix struct {
	PIDs []string
	Data mat64.Matrix
}

// Index returns the row of pid, or -1
func (m *SubjectMatrix) Index(pid string) int {
	for i, p := range m.PIDs {
		if p == pid {
			return i
		}
	}
	return -1
}

// FormatFloat renders a value the way every CSV output does; NaN becomes an empty cell
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseFloat is the inverse of FormatFloat; empty and "NA" cells are NaN
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "NaN" || s == "nan" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteSubjectMatrix saves m with PIDs as header and row index
func WriteSubjectMatrix(path string, m *SubjectMatrix) error {
	rows, cols := m.Data.Dims()
	if rows != len(m.PIDs) || cols != len(m.PIDs) {
		return errors.InvalidInput(fmt.Sprintf("matrix is %d by %d but has %d labels", rows, cols, len(m.PIDs)))
	}

	body := formatRows(m.Data)
	records := make([][]string, 0, rows+1)
	records = append(records, append([]string{IndexColumn}, m.PIDs...))
	for i := 0; i < rows; i++ {
		records = append(records, append([]string{m.PIDs[i]}, body[i]...))
	}

	return WriteCSV(path, records)
}

// ReadSubjectMatrix loads a labelled matrix; PIDs are normalised to 3 digits
func ReadSubjectMatrix(path string) (*SubjectMatrix, error) {
	records, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	n := len(records) - 1
	if n < 1 || len(records[0]) != n+1 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s: not a square labelled matrix", path))
	}

	pids := make([]string, n)
	for i := 0; i < n; i++ {
		pids[i] = refdata.NormalizePID(records[i+1][0])
		if col := refdata.NormalizePID(records[0][i+1]); col != pids[i] {
			return nil, errors.InvalidInput(fmt.Sprintf("%s: row label %s does not match column label %s", path, pids[i], col))
		}
	}

	matrix := mat64.NewDense(n, n, nil)
	if err := parseRows(records[1:], 1, matrix); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	return &SubjectMatrix{PIDs: pids, Data: matrix}, nil
}

// WriteTimeSeries saves a time × parcel table; the header is parcel indices 1..n
func WriteTimeSeries(path string, matrix *mat64.Dense) error {
	rows, cols := matrix.Dims()

	header := make([]string, cols)
	for i := range header {
		header[i] = strconv.Itoa(i + 1)
	}

	records := make([][]string, 0, rows+1)
	records = append(records, header)
	records = append(records, formatRows(matrix)...)

	return WriteCSV(path, records)
}

// ReadTimeSeries loads a time × parcel table, skipping the header row
func ReadTimeSeries(path string) (*mat64.Dense, error) {
	records, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 || len(records[0]) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s: empty time series", path))
	}

	matrix := mat64.NewDense(len(records)-1, len(records[0]), nil)
	if err := parseRows(records[1:], 0, matrix); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return matrix, nil
}

// WriteCSV writes records atomically
func WriteCSV(path string, records [][]string) error {
	return WriteAtomic(path, func(w Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return cw.Error()
	})
}

// ReadCSV reads every record of a CSV file; absence is a MissingInput error
func ReadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingInput(path, err)
		}
		return nil, errors.IOError("opening "+path, err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to parse CSV file %s: %w", path, err))
	}
	return records, nil
}

func formatRows(matrix mat64.Matrix) [][]string {
	rows, _ := matrix.Dims()
	parsed := make([][]string, rows)

	workers := runtime.NumCPU()
	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go formatLine(matrix, parsed, order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)

	return parsed
}

func formatLine(matrix mat64.Matrix, parsed [][]string, order <-chan int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	for {
		index, ok := <-order
		if ok {
			line := make([]string, cols)
			for i := 0; i < cols; i++ {
				line[i] = FormatFloat(matrix.At(index, i))
			}
			parsed[index] = line

			wg.Done()
		} else {
			break
		}
	}
}

// parseRows fills matrix from records, skipping the first skip cells of each record
func parseRows(records [][]string, skip int, matrix *mat64.Dense) error {
	rows, _ := matrix.Dims()
	if len(records) != rows {
		return errors.InvalidInput(fmt.Sprintf("expected %d rows, got %d", rows, len(records)))
	}

	workers := runtime.NumCPU()
	order := make(chan int, workers)
	errs := make([]error, rows)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go parseLine(records, skip, matrix, errs, order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)

	for i, err := range errs {
		if err != nil {
			return errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	return nil
}

func parseLine(records [][]string, skip int, matrix *mat64.Dense, errs []error, order <-chan int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	for {
		index, ok := <-order
		if ok {
			record := records[index]
			if len(record) != cols+skip {
				errs[index] = fmt.Errorf("expected %d fields, got %d", cols+skip, len(record))
				wg.Done()
				continue
			}
			for i := 0; i < cols; i++ {
				value, err := ParseFloat(record[i+skip])
				if err != nil {
					errs[index] = err
					break
				}

				matrix.Set(index, i, value)
			}

			wg.Done()
		} else {
			break
		}
	}
}
