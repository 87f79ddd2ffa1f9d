package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"meteotiles/internal/grid"
)

func TestBarbCounts(t *testing.T) {
	cases := []struct {
		kt                      float64
		pennants, longs, shorts int
	}{
		{5, 0, 0, 1},
		{10, 0, 1, 0},
		{15, 0, 1, 1},
		{35, 0, 3, 1},
		{50, 1, 0, 0}, // exactly one pennant, nothing else
		{65, 1, 1, 1},
		{105, 2, 0, 1},
	}
	for _, c := range cases {
		p, l, s := barbCounts(c.kt)
		assert.Equal(t, c.pennants, p, "%v kt pennants", c.kt)
		assert.Equal(t, c.longs, l, "%v kt longs", c.kt)
		assert.Equal(t, c.shorts, s, "%v kt shorts", c.kt)
	}
}

// 10 m/s is 19.4 kt: one long barb plus one short.
func TestBarbCountsTenMetersPerSecond(t *testing.T) {
	p, l, s := barbCounts(grid.MetersPerSecondToKnots(10))
	assert.Equal(t, 0, p)
	assert.Equal(t, 1, l)
	assert.Equal(t, 1, s)
}

func barbStyle() *WindBarbsStyle {
	return &WindBarbsStyle{SpacingPx: 32, StaffLen: 12, BarbAngle: 60, Color: color.RGBA{0, 0, 0, 255}}
}

func paintedBounds(r *Raster) (minX, maxX int) {
	minX, maxX = r.W, -1
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			if r.Pix[(y*r.W+x)*4+3] != 0 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
			}
		}
	}
	return
}

// A westerly wind (U=+10, V=0) blows from the west: the staff extends
// west of the station.
func TestBarbStaffPointsIntoWind(t *testing.T) {
	w, h := 64, 64
	uVals := make([]float32, w*h)
	vVals := make([]float32, w*h)
	for i := range uVals {
		uVals[i] = 10
	}
	r := RenderWindBarbs(barbStyle(), uVals, vVals, w, h)

	minX, maxX := paintedBounds(r)
	// Stations sit at 16 and 48; glyphs extend left of each station.
	assert.Less(t, minX, 16)
	assert.LessOrEqual(t, maxX, 48+2)
}

func TestCalmDrawsCircleOnly(t *testing.T) {
	w, h := 40, 40
	uVals := make([]float32, w*h)
	vVals := make([]float32, w*h)
	// 1 m/s is below the 3 kt calm threshold.
	for i := range uVals {
		uVals[i] = 1
	}
	r := RenderWindBarbs(barbStyle(), uVals, vVals, w, h)

	minX, maxX := paintedBounds(r)
	// The only station sits at 16. A calm circle spans ~7 px around
	// the station; a staff would reach 12 px out.
	assert.GreaterOrEqual(t, minX, 16-calmRadiusPx-1)
	assert.LessOrEqual(t, maxX, 16+calmRadiusPx+1)
}

func TestMissingComponentsSkipGlyph(t *testing.T) {
	w, h := 40, 40
	uVals := make([]float32, w*h)
	vVals := make([]float32, w*h)
	for i := range uVals {
		uVals[i] = grid.Missing()
		vVals[i] = 5
	}
	r := RenderWindBarbs(barbStyle(), uVals, vVals, w, h)
	_, maxX := paintedBounds(r)
	assert.Equal(t, -1, maxX)
}

func TestFromDirectionMath(t *testing.T) {
	// Southerly wind (V=+10): from the south. atan2(-u,-v) with u=0,
	// v=10 gives pi, i.e. from-north convention rotated to south.
	dir := math.Atan2(-0.0, -10.0)
	assert.InDelta(t, math.Pi, math.Abs(dir), 1e-9)
}
