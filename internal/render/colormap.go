// Package render draws the pipeline's figures: glass-brain projections of
// per-parcel maps, subject × subject heat maps and the atlas overview.
package render

import (
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

func hex(s string) color.Color {
	var r, g, b uint8
	fmt.Sscanf(strings.TrimPrefix(s, "#"), "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// control points with increasing luminance
var controls = map[string][]string{
	"viridis": {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
	"plasma":  {"#0d0887", "#7e03a8", "#cc4778", "#f89540", "#f0f921"},
	"inferno": {"#000004", "#57106e", "#bc3754", "#f98e09", "#fcffa4"},
	"binary":  {"#00017a", "#fed701"},
	"gray":    {"#000000", "#ffffff"},
}

// Colormap returns the named colour map scaled to [min, max]
func Colormap(name string, min, max float64) (palette.ColorMap, error) {
	if !(min < max) {
		return nil, errors.InvalidInput(fmt.Sprintf("colour range [%g, %g] is empty", min, max))
	}

	var cm palette.ColorMap
	switch name {
	case "blackbody":
		cm = moreland.BlackBody()
	case "extendedblackbody":
		cm = moreland.ExtendedBlackBody()
	default:
		hexes, ok := controls[name]
		if !ok {
			return nil, errors.ConfigInvalid(fmt.Sprintf("unknown colormap %q", name))
		}
		cs := make([]color.Color, len(hexes))
		for i, h := range hexes {
			cs[i] = hex(h)
		}
		var err error
		if cm, err = moreland.NewLuminance(cs); err != nil {
			return nil, errors.Wrapf(err, "colormap %s", name)
		}
	}

	cm.SetMin(min)
	cm.SetMax(max)
	return cm, nil
}
