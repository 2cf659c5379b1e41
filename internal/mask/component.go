package mask

import (
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

// LargestComponent returns a copy of g that keeps only the largest
// face-connected cluster of non-zero voxels. Ties go to the cluster met first
// scanning x slowest, z fastest. The second result is the number of clusters.
func LargestComponent(g *volume.Grid) (*volume.Grid, int) {
	labels := make([]int, len(g.Data))
	var sizes []int
	queue := make([]int, 0, 64)

	for x := 0; x < g.Nx; x++ {
		for y := 0; y < g.Ny; y++ {
			for z := 0; z < g.Nz; z++ {
				start := x + g.Nx*(y+g.Ny*z)
				if g.Data[start] == 0 || labels[start] != 0 {
					continue
				}

				sizes = append(sizes, 0)
				label := len(sizes)
				labels[start] = label
				queue = append(queue[:0], start)
				for len(queue) > 0 {
					i := queue[len(queue)-1]
					queue = queue[:len(queue)-1]
					sizes[label-1]++

					for _, j := range neighbours(g, i) {
						if g.Data[j] != 0 && labels[j] == 0 {
							labels[j] = label
							queue = append(queue, j)
						}
					}
				}
			}
		}
	}

	out := volume.NewGrid(g.Nx, g.Ny, g.Nz)
	if len(sizes) == 0 {
		return out, 0
	}

	best := 0
	for k, s := range sizes {
		if s > sizes[best] {
			best = k
		}
	}
	for i, l := range labels {
		if l == best+1 {
			out.Data[i] = g.Data[i]
		}
	}
	return out, len(sizes)
}

// neighbours lists the in-bounds face neighbours of flat index i
func neighbours(g *volume.Grid, i int) []int {
	x := i % g.Nx
	y := (i / g.Nx) % g.Ny
	z := i / (g.Nx * g.Ny)
	plane := g.Nx * g.Ny

	out := make([]int, 0, 6)
	if x > 0 {
		out = append(out, i-1)
	}
	if x < g.Nx-1 {
		out = append(out, i+1)
	}
	if y > 0 {
		out = append(out, i-g.Nx)
	}
	if y < g.Ny-1 {
		out = append(out, i+g.Nx)
	}
	if z > 0 {
		out = append(out, i-plane)
	}
	if z < g.Nz-1 {
		out = append(out, i+plane)
	}
	return out
}
