package render

import (
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/volume"
)

// Axis names the direction a volume is collapsed along
type Axis int

const (
	Sagittal Axis = iota // along x
	Coronal              // along y
	Axial                // along z
)

func (a Axis) String() string {
	return [...]string{"sagittal", "coronal", "axial"}[a]
}

// Plane is a 2D image, column-fastest with row 0 at the bottom
type Plane struct {
	W, H int
	Data []float64
}

func (p *Plane) Dims() (c, r int)   { return p.W, p.H }
func (p *Plane) Z(c, r int) float64 { return p.Data[c+p.W*r] }
func (p *Plane) X(c int) float64    { return float64(c) }
func (p *Plane) Y(r int) float64    { return float64(r) }

// Project paints each parcel's value onto its atlas voxels. When pvals is
// non-nil and threshold > 0 only parcels with p < threshold are kept;
// everything else is NaN.
func Project(atlas *volume.Grid, values, pvals map[int]float64, threshold float64) *volume.Grid {
	out := volume.NewGrid(atlas.Nx, atlas.Ny, atlas.Nz)
	for i, l := range atlas.Data {
		out.Data[i] = math.NaN()
		k := int(math.Round(l))
		if k <= 0 {
			continue
		}
		v, ok := values[k]
		if !ok {
			continue
		}
		if pvals != nil && threshold > 0 {
			p, ok := pvals[k]
			if !ok || math.IsNaN(p) || p >= threshold {
				continue
			}
		}
		out.Data[i] = v
	}
	return out
}

// MaxProjection collapses g along axis keeping, per ray, the value of largest
// magnitude with its sign. Rays with no finite value are NaN.
func MaxProjection(g *volume.Grid, axis Axis) *Plane {
	var w, h, depth int
	var at func(c, r, d int) float64
	switch axis {
	case Sagittal:
		w, h, depth = g.Ny, g.Nz, g.Nx
		at = func(c, r, d int) float64 { return g.At(d, c, r) }
	case Coronal:
		w, h, depth = g.Nx, g.Nz, g.Ny
		at = func(c, r, d int) float64 { return g.At(c, d, r) }
	default:
		w, h, depth = g.Nx, g.Ny, g.Nz
		at = func(c, r, d int) float64 { return g.At(c, r, d) }
	}

	p := &Plane{W: w, H: h, Data: make([]float64, w*h)}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			best := math.NaN()
			for d := 0; d < depth; d++ {
				v := at(c, r, d)
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(best) || math.Abs(v) > math.Abs(best) {
					best = v
				}
			}
			p.Data[c+w*r] = best
		}
	}
	return p
}

// matrixGrid shows a matrix with row 0 at the top
type matrixGrid struct {
	m mat64.Matrix
}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }
