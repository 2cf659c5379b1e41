package calc

import (
	"fmt"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// coverage fractions such as 4/5 must still meet a 0.8 threshold
const binarizeTolerance = 1e-9

func binarize(inputMat *mat64.Dense, outputMat *mat64.Dense, thr float64, order <-chan int, wg *sync.WaitGroup) {
	_, inputCols := inputMat.Dims()

	for {
		index, ok := <-order
		if ok {
			for t := 0; t < inputCols; t++ {
				value := 0.0
				if inputMat.At(index, t) >= thr-binarizeTolerance {
					value = 1
				}

				outputMat.Set(index, t, value)
			}

			wg.Done()
		} else {
			break
		}
	}
}

// Binarize sets elements at or above thr to 1 and everything else to 0
func (p *PipeLine) Binarize(inputMat *mat64.Dense, outputMat *mat64.Dense, thr float64) error {
	inputRows, inputCols := inputMat.Dims()
	outputRows, outputCols := outputMat.Dims()

	if inputRows != outputRows || inputCols != outputCols {
		return errors.InvalidInput(fmt.Sprintf("Binarize: input dims: %d by %d when output dims: %d by %d", inputRows, inputCols, outputRows, outputCols))
	}

	p.dispatch(inputRows, func(order <-chan int, wg *sync.WaitGroup) {
		binarize(inputMat, outputMat, thr, order, wg)
	})
	return nil
}
