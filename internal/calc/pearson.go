package calc

import (
	"fmt"
	"math"
	"sync"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func pearson(timeSeriesMat *mat64.Dense, pearsonMat *mat64.SymDense, stats []statistic, order <-chan int, wg *sync.WaitGroup) {
	inputRows, inputCols := timeSeriesMat.Dims()

	for {
		from, ok := <-order
		if ok {
			pearsonMat.SetSym(from, from, 1)

			for to := from + 1; to < inputRows; to++ {
				var accProd float64
				for t := 0; t < inputCols; t++ {
					accProd += (timeSeriesMat.At(from, t) - stats[from].avg) * (timeSeriesMat.At(to, t) - stats[to].avg)
				}

				cov := accProd / float64(inputCols)
				pearson := cov / (stats[from].std * stats[to].std)
				if stats[from].std == 0 || stats[to].std == 0 {
					pearson = math.NaN()
				} else {
					pearson = math.Max(-1, math.Min(1, pearson))
				}

				// each worker owns row `from` of the upper triangle
				pearsonMat.SetSym(from, to, pearson)
			}

			wg.Done()
		} else {
			break
		}
	}
}

func getStat(timeSeriesMat *mat64.Dense, stats []statistic, order <-chan int, wg *sync.WaitGroup) {
	_, numCols := timeSeriesMat.Dims()
	for {
		index, ok := <-order
		if ok {
			var accVal float64
			for t := 0; t < numCols; t++ {
				accVal += timeSeriesMat.At(index, t)
			}
			avgVal := accVal / float64(numCols)

			var accSqrDev float64
			for t := 0; t < numCols; t++ {
				dev := timeSeriesMat.At(index, t) - avgVal
				accSqrDev += dev * dev
			}

			stats[index].avg = avgVal
			stats[index].std = math.Sqrt(accSqrDev / float64(numCols))

			wg.Done()
		} else {
			break
		}
	}
}

// Pearson computes the correlation between every pair of rows of
// timeSeriesMat (one row per subject). Rows with zero variance correlate
// NaN with every other row; the diagonal is exactly 1.
func (p *PipeLine) Pearson(timeSeriesMat *mat64.Dense, outputMat *mat64.SymDense) error {
	inputRows, inputCols := timeSeriesMat.Dims()
	outputRows := outputMat.Symmetric()

	{ // Check input matrix and output matrix dimensions
		if outputRows != inputRows {
			return errors.InvalidInput(fmt.Sprintf("Pearson: input is %d by %d but output is %d by %d", inputRows, inputCols, outputRows, outputRows))
		}
		if inputCols < 2 {
			return errors.InvalidInput(fmt.Sprintf("Pearson: need at least 2 time points, got %d", inputCols))
		}
	}

	stats := make([]statistic, inputRows)

	// Get statistics for each subject time series
	p.dispatch(inputRows, func(order <-chan int, wg *sync.WaitGroup) {
		getStat(timeSeriesMat, stats, order, wg)
	})

	// Calculate Pearson's correlation
	p.dispatch(inputRows, func(order <-chan int, wg *sync.WaitGroup) {
		pearson(timeSeriesMat, outputMat, stats, order, wg)
	})

	return nil
}
