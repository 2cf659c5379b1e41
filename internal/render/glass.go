package render

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/volume"
)

// GlassBrain draws the sagittal, coronal and axial signed max-|v| projections
// of vol next to a colour bar
func GlassBrain(path string, vol *volume.Grid, opt Options) error {
	cm, err := Colormap(opt.Colormap, opt.VMin, opt.VMax)
	if err != nil {
		return err
	}

	finite := 0
	for _, v := range vol.Data {
		if !math.IsNaN(v) {
			finite++
		}
	}
	if finite == 0 {
		log.WithField("figure", path).Warn("Nothing survives the threshold, drawing an empty glass brain")
	}

	panels := make([]*plot.Plot, 0, 3)
	for _, a := range []Axis{Sagittal, Coronal, Axial} {
		panels = append(panels, heatPanel(MaxProjection(vol, a), cm, a.String()))
	}
	return drawRow(path, panels, colorBar(cm), opt.Title, 24*vg.Centimeter, 8*vg.Centimeter, opt.dpi())
}

// Matrix draws a subject × subject matrix as a heat map
func Matrix(path string, m *io.SubjectMatrix, opt Options) error {
	cm, err := Colormap(opt.Colormap, opt.VMin, opt.VMax)
	if err != nil {
		return err
	}
	p := heatPanel(matrixGrid{m.Data}, cm, "")
	return drawRow(path, []*plot.Plot{p}, colorBar(cm), opt.Title, 14*vg.Centimeter, 12*vg.Centimeter, opt.dpi())
}

// Atlas draws the parcellation, one hue per parcel, from the three directions.
// The label seen along each ray is the largest one.
func Atlas(path string, atlas *volume.Grid, n int, opt Options) error {
	if n < 2 {
		return errors.InvalidInput("atlas overview needs at least two parcels")
	}
	labels := volume.NewGrid(atlas.Nx, atlas.Ny, atlas.Nz)
	for i, v := range atlas.Data {
		if v > 0 {
			labels.Data[i] = v
		} else {
			labels.Data[i] = math.NaN()
		}
	}

	pal := palette.Rainbow(n, palette.Red, palette.Magenta, 1, 1, 1)
	panels := make([]*plot.Plot, 0, 3)
	for _, a := range []Axis{Sagittal, Coronal, Axial} {
		h := plotter.NewHeatMap(MaxProjection(labels, a), pal)
		h.Min, h.Max = 1, float64(n)
		h.Rasterized = true

		p := plot.New()
		p.Title.Text = a.String()
		p.HideAxes()
		p.Add(h)
		panels = append(panels, p)
	}
	return drawRow(path, panels, nil, opt.Title, 24*vg.Centimeter, 8*vg.Centimeter, opt.dpi())
}
