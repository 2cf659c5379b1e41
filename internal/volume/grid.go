package volume

import (
	"github.com/gonum/matrix/mat64"
)

// Grid is a dense 3D scalar volume in x-fastest order
type Grid struct {
	Nx, Ny, Nz int
	Data       []float64
}

// NewGrid returns a zero grid
func NewGrid(nx, ny, nz int) *Grid {
	return &Grid{Nx: nx, Ny: ny, Nz: nz, Data: make([]float64, nx*ny*nz)}
}

func (g *Grid) index(x, y, z int) int {
	return x + g.Nx*(y+g.Ny*z)
}

// At returns the value at (x, y, z)
func (g *Grid) At(x, y, z int) float64 {
	return g.Data[g.index(x, y, z)]
}

// Set stores v at (x, y, z)
func (g *Grid) Set(x, y, z int, v float64) {
	g.Data[g.index(x, y, z)] = v
}

// SameShape reports whether both grids have identical dimensions
func (g *Grid) SameShape(o *Grid) bool {
	return g.Nx == o.Nx && g.Ny == o.Ny && g.Nz == o.Nz
}

// Dense views the grid as an Nz × (Nx·Ny) matrix sharing its storage, so the
// row-parallel kernels can work slice by slice
func (g *Grid) Dense() *mat64.Dense {
	return mat64.NewDense(g.Nz, g.Nx*g.Ny, g.Data)
}
