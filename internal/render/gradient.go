package render

import (
	"image/color"
	"sort"

	"meteotiles/internal/grid"
)

// lookupStops interpolates a value along a sorted stop table. Values
// outside the domain clamp to the end stops.
func lookupStops(stops []GradientStop, v float64) color.RGBA {
	n := len(stops)
	if v <= stops[0].Value {
		s := stops[0]
		return color.RGBA{s.R, s.G, s.B, 255}
	}
	if v >= stops[n-1].Value {
		s := stops[n-1]
		return color.RGBA{s.R, s.G, s.B, 255}
	}
	i := sort.Search(n, func(i int) bool { return stops[i].Value > v })
	a, b := stops[i-1], stops[i]
	t := (v - a.Value) / (b.Value - a.Value)
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + t*(float64(y)-float64(x)) + 0.5) }
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}

// RenderGradient colors a resampled W*H buffer through the style's
// stop table. Missing samples stay transparent.
func RenderGradient(s *GradientStyle, vals []float32, w, h int, srcUnit string) *Raster {
	r := NewRaster(w, h)
	for idx, v := range vals {
		if grid.IsMissing(v) {
			continue
		}
		v = grid.Convert(v, srcUnit, s.Unit)
		c := lookupStops(s.Stops, float64(v))
		i := idx * 4
		r.Pix[i] = c.R
		r.Pix[i+1] = c.G
		r.Pix[i+2] = c.B
		r.Pix[i+3] = 255
	}
	return r
}
