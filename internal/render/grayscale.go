package render

import (
	"meteotiles/internal/grid"
)

// RenderGrayscale linearly normalizes values into 0-255 for GOES
// visible channels. Out-of-domain values clamp.
func RenderGrayscale(s *GrayscaleStyle, vals []float32, w, h int) *Raster {
	r := NewRaster(w, h)
	span := s.DomainMax - s.DomainMin
	if span <= 0 {
		span = 1
	}
	for idx, v := range vals {
		if grid.IsMissing(v) {
			continue
		}
		t := (float64(v) - s.DomainMin) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		g := uint8(t*255 + 0.5)
		i := idx * 4
		r.Pix[i] = g
		r.Pix[i+1] = g
		r.Pix[i+2] = g
		r.Pix[i+3] = 255
	}
	return r
}

// RenderEnhancedIR maps brightness temperatures through the piecewise
// enhancement lookup that highlights cold cloud tops.
func RenderEnhancedIR(s *EnhancedIRStyle, vals []float32, w, h int) *Raster {
	r := NewRaster(w, h)
	for idx, v := range vals {
		if grid.IsMissing(v) {
			continue
		}
		c := lookupStops(s.Lookup, float64(v))
		i := idx * 4
		r.Pix[i] = c.R
		r.Pix[i+1] = c.G
		r.Pix[i+2] = c.B
		r.Pix[i+3] = 255
	}
	return r
}
