package calc

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Tolerance is the precision Validate is called with before matrices are written
const Tolerance = 1e-9

// Validate reports an InvalidInput error unless matrix is symmetric with
// every diagonal element equal to diag
func Validate(matrix mat64.Matrix, diag, pre float64) error {
	if !SymCheck(matrix, pre) {
		return errors.InvalidInput("matrix is not symmetric")
	}
	if !DiagCheck(matrix, diag, pre) {
		return errors.InvalidInput(fmt.Sprintf("matrix diagonal is not %g", diag))
	}
	return nil
}

// SymCheck checks symmetry; NaN cells must be mirrored by NaN
func SymCheck(matrix mat64.Matrix, pre float64) bool {
	rows, cols := matrix.Dims()
	if rows != cols {
		return false
	}
	workers := runtime.NumCPU()

	order := make(chan int, workers)
	isSymm := make([]bool, rows)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go symCheck(matrix, isSymm, math.Abs(pre), order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)

	symm := true
	for i := 0; i < rows; i++ {
		symm = symm && isSymm[i]
	}

	return symm
}

func symCheck(matrix mat64.Matrix, isSymm []bool, pre float64, order <-chan int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	for {
		index, ok := <-order
		if ok {
			isSymm[index] = true
			for i := index; i < cols; i++ {
				a, b := matrix.At(index, i), matrix.At(i, index)
				isSame := (math.Abs(a-b) < pre) || (math.IsNaN(a) && math.IsNaN(b))
				if !isSame {
					isSymm[index] = false
					break
				}
			}

			wg.Done()
		} else {
			break
		}
	}
}

// DiagCheck checks that every diagonal element equals value
func DiagCheck(matrix mat64.Matrix, value float64, pre float64) bool {
	rows, cols := matrix.Dims()
	if rows != cols {
		return false
	}
	for i := 0; i < rows; i++ {
		if math.Abs(matrix.At(i, i)-value) >= math.Abs(pre) {
			return false
		}
	}
	return true
}
