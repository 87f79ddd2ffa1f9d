package proj

import (
	"math"

	"meteotiles/internal/grid"
)

// Bilinear samples the field at fractional grid coordinate (u,v).
// Columns wrap modulo nx on global geographic grids and clamp
// otherwise; rows always clamp. ok is false when any of the four
// surrounding samples is bitmap-missing.
func Bilinear(f *grid.DecodedField, u, v float64) (float32, bool) {
	u0 := int(math.Floor(u))
	v0 := int(math.Floor(v))
	fu := u - float64(u0)
	fv := v - float64(v0)

	wrap := f.Spec.GlobalLon && f.Spec.Projection == grid.Geographic

	sample := func(du, dv int) float32 {
		if wrap {
			return f.AtWrapped(u0+du, v0+dv)
		}
		return f.At(u0+du, v0+dv)
	}

	s00 := sample(0, 0)
	s10 := sample(1, 0)
	s01 := sample(0, 1)
	s11 := sample(1, 1)
	if grid.IsMissing(s00) || grid.IsMissing(s10) || grid.IsMissing(s01) || grid.IsMissing(s11) {
		return grid.Missing(), false
	}

	top := float64(s00) + fu*float64(s10-s00)
	bot := float64(s01) + fu*float64(s11-s01)
	return float32(top + fv*(bot-top)), true
}

// outOfRange reports whether (u,v) falls entirely outside the source
// grid, more than one cell beyond its edge rows or columns.
func outOfRange(f *grid.DecodedField, u, v float64) bool {
	wrap := f.Spec.GlobalLon && f.Spec.Projection == grid.Geographic
	if !wrap && (u < -1 || u > float64(f.Spec.Nx)) {
		return true
	}
	return v < -1 || v > float64(f.Spec.Ny)
}

// Resample fills a W*H buffer by sampling the field through a
// precomputed LUT. Pixels with no source coordinate, out-of-range
// coordinates, or missing neighbours carry the missing sentinel, which
// renderers turn into transparent alpha.
func Resample(f *grid.DecodedField, lut *LUT) []float32 {
	out := make([]float32, lut.W*lut.H)
	for idx := range out {
		if !lut.OK[idx] {
			out[idx] = grid.Missing()
			continue
		}
		u := float64(lut.U[idx])
		v := float64(lut.V[idx])
		if outOfRange(f, u, v) {
			out[idx] = grid.Missing()
			continue
		}
		s, ok := Bilinear(f, u, v)
		if !ok {
			out[idx] = grid.Missing()
			continue
		}
		out[idx] = s
	}
	return out
}
