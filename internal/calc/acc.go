package calc

import (
	"fmt"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func acc(inputMat *mat64.Dense, outputMat *mat64.Dense, order <-chan int, wg *sync.WaitGroup) {
	_, inputCols := inputMat.Dims()

	for {
		index, ok := <-order
		if ok {
			for t := 0; t < inputCols; t++ {
				value := outputMat.At(index, t) + inputMat.At(index, t)
				outputMat.Set(index, t, value)
			}

			wg.Done()
		} else {
			break
		}
	}
}

// Acc adds inputMat into outputMat element-wise
func (p *PipeLine) Acc(inputMat *mat64.Dense, outputMat *mat64.Dense) error {
	inputRows, inputCols := inputMat.Dims()
	outputRows, outputCols := outputMat.Dims()

	if inputRows != outputRows || inputCols != outputCols {
		return errors.InvalidInput(fmt.Sprintf("Acc: input dims: %d by %d when output dims: %d by %d", inputRows, inputCols, outputRows, outputCols))
	}

	p.dispatch(inputRows, func(order <-chan int, wg *sync.WaitGroup) {
		acc(inputMat, outputMat, order, wg)
	})
	return nil
}
