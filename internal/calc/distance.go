package calc

import (
	"fmt"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func complement(inputMat *mat64.SymDense, outputMat *mat64.SymDense, order <-chan int, wg *sync.WaitGroup) {
	n := inputMat.Symmetric()

	for {
		index, ok := <-order
		if ok {
			outputMat.SetSym(index, index, 0)
			for t := index + 1; t < n; t++ {
				outputMat.SetSym(index, t, 1-inputMat.At(index, t))
			}

			wg.Done()
		} else {
			break
		}
	}
}

// Distance converts a correlation matrix into correlation distance 1 - r
// with an exactly zero diagonal
func (p *PipeLine) Distance(inputMat *mat64.SymDense, outputMat *mat64.SymDense) error {
	inputN := inputMat.Symmetric()
	outputN := outputMat.Symmetric()

	if inputN != outputN {
		return errors.InvalidInput(fmt.Sprintf("Distance: input is %d by %d but output is %d by %d", inputN, inputN, outputN, outputN))
	}

	p.dispatch(inputN, func(order <-chan int, wg *sync.WaitGroup) {
		complement(inputMat, outputMat, order, wg)
	})

	return nil
}
