package behavior

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/matfile"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// ReconstructRDM reduces an item-level RDM to one subject × subject matrix
// per phase. Only the upper triangle (diagonal included) of raw is read;
// cells whose two ids share phase and item are averaged per subject pair,
// the result is mirrored onto the lower triangle and the diagonal zeroed.
// Subject pairs without a contributing cell are NaN.
func ReconstructRDM(raw mat64.Matrix, ids []ItemID, roster []refdata.Subject) (map[Phase]*io.SubjectMatrix, error) {
	r, c := raw.Dims()
	if r != c || r != len(ids) {
		return nil, errors.InvalidInput(fmt.Sprintf("RDM is %d by %d but %d item ids were given", r, c, len(ids)))
	}

	n := len(roster)
	index := make(map[string]int, n)
	pids := make([]string, n)
	for i, s := range roster {
		index[s.PID] = i
		pids[i] = s.PID
	}

	type cell struct {
		sum   float64
		count int
	}
	acc := make(map[Phase][]cell, len(Phases))
	for _, phase := range Phases {
		acc[phase] = make([]cell, n*n)
	}

	for i := 0; i < r; i++ {
		a := ids[i]
		for j := i; j < r; j++ {
			b := ids[j]
			if a.Phase != b.Phase || a.Item != b.Item {
				continue
			}
			s1, ok1 := index[a.Subject]
			s2, ok2 := index[b.Subject]
			if !ok1 || !ok2 {
				return nil, errors.LookupMismatch(fmt.Sprintf("item ids %s and %s name a subject outside the roster", a, b))
			}
			if s1 > s2 {
				s1, s2 = s2, s1
			}
			v := raw.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			cells := acc[a.Phase]
			cells[s1*n+s2].sum += v
			cells[s1*n+s2].count++
		}
	}

	out := make(map[Phase]*io.SubjectMatrix, len(Phases))
	for _, phase := range Phases {
		cells := acc[phase]
		data := mat64.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v := math.NaN()
				if c := cells[i*n+j]; c.count > 0 {
					v = c.sum / float64(c.count)
				}
				data.SetSym(i, j, v)
			}
		}
		out[phase] = &io.SubjectMatrix{PIDs: append([]string(nil), pids...), Data: data}
	}
	return out, nil
}

// LoadRaw reads an item-level RDM from a MATLAB .mat file (variable names
// the array) or a numpy .npy file
func LoadRaw(path, variable string) (*mat64.Dense, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return io.ReadNpy(path)
	case ".mat":
		return matfile.ReadVariable(path, variable)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("%s: unsupported RDM format", path))
	}
}

// MatrixName is the output file of a behavioural matrix, e.g. Features_pre.csv
func MatrixName(measure string, phase Phase) string {
	return fmt.Sprintf("%s_%s.csv", measure, phase)
}
