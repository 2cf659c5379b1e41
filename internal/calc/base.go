// Package calc holds the row-parallel numeric kernels shared by the stages.
package calc

import (
	"runtime"
	"sync"
)

// PipeLine represents a compute pipeline; kernels fan rows out to numPoper workers
type PipeLine struct {
	numPoper int
}

// Init returns a compute PipeLine with the given number of workers; values
// below one select one worker per CPU
func Init(workers int) *PipeLine {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	return &PipeLine{numPoper: workers}
}

// Workers returns the pipeline width
func (p *PipeLine) Workers() int {
	return p.numPoper
}

// dispatch pushes row indices 0..rows-1 to numPoper copies of worker and
// waits until every row has been acknowledged
func (p *PipeLine) dispatch(rows int, worker func(order <-chan int, wg *sync.WaitGroup)) {
	order := make(chan int, p.numPoper)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < p.numPoper; i++ {
		go worker(order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)
}

/*
	Workflow:

	Init -> (Acc -> Avg -> Binarize) | (Pearson -> Distance)
*/

type statistic struct {
	avg float64
	std float64
}
