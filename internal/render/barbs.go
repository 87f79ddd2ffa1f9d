package render

import (
	"math"

	"meteotiles/internal/grid"
)

// Wind barb speed decorations, in knots.
const (
	calmKnots    = 3
	shortBarbKt  = 5
	longBarbKt   = 10
	pennantKt    = 50
	barbStepPx   = 5
	calmRadiusPx = 3
)

// RenderWindBarbs draws barb glyphs at a sparse pixel grid from
// resampled U and V component buffers (native units m/s).
func RenderWindBarbs(s *WindBarbsStyle, uVals, vVals []float32, w, h int) *Raster {
	r := NewRaster(w, h)
	spacing := s.SpacingPx
	if spacing <= 0 {
		spacing = 50
	}

	for y := spacing / 2; y < h; y += spacing {
		for x := spacing / 2; x < w; x += spacing {
			u := uVals[y*w+x]
			v := vVals[y*w+x]
			if grid.IsMissing(u) || grid.IsMissing(v) {
				continue
			}
			drawBarb(r, s, float64(x), float64(y), float64(u), float64(v))
		}
	}
	return r
}

// drawBarb draws one glyph. The staff points from the station toward
// the direction the wind blows FROM; decorations hang off the staff
// from the tip toward the base.
func drawBarb(r *Raster, s *WindBarbsStyle, x, y, u, v float64) {
	speedKt := grid.MetersPerSecondToKnots(math.Hypot(u, v))

	if speedKt < calmKnots {
		r.Circle(int(math.Round(x)), int(math.Round(y)), calmRadiusPx, 1, s.Color)
		return
	}

	// Meteorological "from" direction: 0 = from north, clockwise.
	dir := math.Atan2(-u, -v)
	// Screen unit vector toward the wind source (y grows downward,
	// north is up).
	dx := math.Sin(dir)
	dy := -math.Cos(dir)

	staff := float64(s.StaffLen)
	if staff <= 0 {
		staff = 24
	}
	tipX := x + staff*dx
	tipY := y + staff*dy
	r.LineF(x, y, tipX, tipY, 1, s.Color)

	pennants, longs, shorts := barbCounts(speedKt)
	if pennants+longs+shorts == 0 {
		return
	}

	barbAngle := s.BarbAngle
	if barbAngle == 0 {
		barbAngle = 60
	}
	// Barbs extend off the staff, rotated off the tip-to-base axis.
	theta := dir + barbAngle*math.Pi/180
	bx := math.Sin(theta)
	by := -math.Cos(theta)

	px := tipX
	py := tipY
	step := func() {
		px -= barbStepPx * dx
		py -= barbStepPx * dy
	}

	for i := 0; i < pennants; i++ {
		// Pennant: filled triangle from the current staff position.
		baseX := px - barbStepPx*dx
		baseY := py - barbStepPx*dy
		apexX := px + float64(longBarbKt)*bx
		apexY := py + float64(longBarbKt)*by
		r.FillTriangle(px, py, baseX, baseY, apexX, apexY, s.Color)
		step()
	}
	for i := 0; i < longs; i++ {
		r.LineF(px, py, px+float64(longBarbKt)*bx, py+float64(longBarbKt)*by, 1, s.Color)
		step()
	}
	if shorts > 0 {
		r.LineF(px, py, px+float64(shortBarbKt)*bx, py+float64(shortBarbKt)*by, 1, s.Color)
	}
}

// barbCounts decomposes a speed into glyph decorations: pennants per
// 50 kt, long barbs per 10 kt, and one short barb when at least 5 kt
// remains. Exactly 50 kt is one pennant and nothing else.
func barbCounts(speedKt float64) (pennants, longs, shorts int) {
	remaining := speedKt
	pennants = int(remaining / pennantKt)
	remaining -= float64(pennants) * pennantKt
	longs = int(remaining / longBarbKt)
	remaining -= float64(longs) * longBarbKt
	if remaining >= shortBarbKt {
		shorts = 1
	}
	return pennants, longs, shorts
}
