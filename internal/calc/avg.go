package calc

import (
	"fmt"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func avg(inputMat *mat64.Dense, outputMat *mat64.Dense, div float64, order <-chan int, wg *sync.WaitGroup) {
	_, inputCols := inputMat.Dims()

	for {
		index, ok := <-order
		if ok {
			for t := 0; t < inputCols; t++ {
				value := inputMat.At(index, t) / div
				outputMat.Set(index, t, value)
			}

			wg.Done()
		} else {
			break
		}
	}
}

// Avg divides every element of inputMat by div
func (p *PipeLine) Avg(inputMat *mat64.Dense, outputMat *mat64.Dense, div float64) error {
	inputRows, inputCols := inputMat.Dims()
	outputRows, outputCols := outputMat.Dims()

	if inputRows != outputRows || inputCols != outputCols {
		return errors.InvalidInput(fmt.Sprintf("Avg: input dims: %d by %d when output dims: %d by %d", inputRows, inputCols, outputRows, outputCols))
	}
	if div == 0 {
		return errors.InvalidInput("Avg: division by zero")
	}

	p.dispatch(inputRows, func(order <-chan int, wg *sync.WaitGroup) {
		avg(inputMat, outputMat, div, order, wg)
	})
	return nil
}
