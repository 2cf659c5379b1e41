// Package behavior builds the demographic control matrices and reduces the
// item-level behavioural RDMs to subject × subject matrices.
package behavior

import (
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// AgeMatrix returns |age_i - age_j| over the roster
func AgeMatrix(roster []refdata.Subject) (*io.SubjectMatrix, error) {
	return pairwise(roster, func(a, b refdata.Subject) float64 {
		return math.Abs(a.Age - b.Age)
	})
}

// SexMatrix returns 0 for same-sex and 1 for different-sex pairs
func SexMatrix(roster []refdata.Subject) (*io.SubjectMatrix, error) {
	return pairwise(roster, func(a, b refdata.Subject) float64 {
		if a.Sex == b.Sex {
			return 0
		}
		return 1
	})
}

func pairwise(roster []refdata.Subject, dist func(a, b refdata.Subject) float64) (*io.SubjectMatrix, error) {
	n := len(roster)
	if n == 0 {
		return nil, errors.InvalidInput("empty roster")
	}

	pids := make([]string, n)
	data := mat64.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		pids[i] = roster[i].PID
		for j := i + 1; j < n; j++ {
			data.SetSym(i, j, dist(roster[i], roster[j]))
		}
	}
	return &io.SubjectMatrix{PIDs: pids, Data: data}, nil
}
