package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KyungWonPark/MovieISC/internal/io"
)

// Options controls a rendered figure
type Options struct {
	Title     string
	VMin      float64
	VMax      float64
	Colormap  string
	Threshold float64
	DPI       int
}

func (o Options) dpi() int {
	if o.DPI <= 0 {
		return 100
	}
	return o.DPI
}

func heatPanel(g plotter.GridXYZ, cm palette.ColorMap, title string) *plot.Plot {
	pal := cm.Palette(255)
	colors := pal.Colors()

	h := plotter.NewHeatMap(g, pal)
	h.Min, h.Max = cm.Min(), cm.Max()
	h.Underflow = colors[0]
	h.Overflow = colors[len(colors)-1]
	h.Rasterized = true

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(h)
	return p
}

func colorBar(cm palette.ColorMap) *plot.Plot {
	p := plot.New()
	p.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	p.HideX()
	p.Y.Padding = 0
	return p
}

// drawRow lays panels out left to right with the colour bar, if any, in a
// narrow strip on the right, then writes the PNG
func drawRow(path string, panels []*plot.Plot, bar *plot.Plot, title string, w, h vg.Length, dpi int) error {
	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))
	dc := draw.New(img)

	if title != "" {
		sty := plot.New().Title.TextStyle
		dc.FillText(sty, vg.Point{X: w / 2, Y: h - vg.Millimeter}, title)
		dc = draw.Crop(dc, 0, 0, 0, -vg.Centimeter)
	}

	var barWidth vg.Length
	if bar != nil {
		barWidth = w / 10
	}
	left := draw.Crop(dc, 0, -barWidth, 0, 0)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(panels),
		PadX:      vg.Millimeter,
		PadTop:    vg.Millimeter,
		PadBottom: vg.Millimeter,
		PadLeft:   vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{panels}, tiles, left)
	for i, p := range panels {
		p.Draw(canvases[0][i])
	}
	if bar != nil {
		bar.Draw(draw.Crop(dc, w-barWidth+vg.Millimeter, -vg.Millimeter, 2*vg.Millimeter, -2*vg.Millimeter))
	}

	return io.WriteAtomic(path, func(out io.Writer) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(out)
		return err
	})
}
