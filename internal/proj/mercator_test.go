package proj

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetersRoundTrip(t *testing.T) {
	cases := [][2]float64{{0, 0}, {45, 45}, {-33.5, 151.2}, {85, -179.9}, {-85, 179.9}}
	for _, c := range cases {
		mx, my := LatLonToMeters(c[0], c[1])
		lat, lon := MetersToLatLon(mx, my)
		assert.InDelta(t, c[0], lat, 1e-9)
		assert.InDelta(t, c[1], lon, 1e-9)
	}
}

func TestWorldExtent(t *testing.T) {
	mx, my := LatLonToMeters(MaxLat, 180)
	assert.InDelta(t, OriginShift, mx, 1e-6)
	assert.InDelta(t, OriginShift, my, 1e-6)
}

func TestTileRoundTripIdentity(t *testing.T) {
	for z := 0; z <= 18; z++ {
		n := 1 << uint(z)
		probes := [][2]int{{0, 0}, {n - 1, n - 1}, {n / 2, n / 3}}
		for _, p := range probes {
			lat, lon := TileToLatLonCenter(z, p[0], p[1])
			x, y := LatLonToTile(lat, lon, z)
			assert.Equal(t, p[0], x, "z=%d", z)
			assert.Equal(t, p[1], y, "z=%d", z)
		}
	}
}

// The south-west corner of tile (z,x,y) must equal the standard
// formula evaluated at (z,x,y+1).
func TestTileSouthWestCorner(t *testing.T) {
	formulaLat := func(z, y int) float64 {
		n := float64(int64(1) << uint(z))
		return math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
	}
	for _, c := range [][3]int{{3, 2, 5}, {0, 0, 0}, {10, 511, 300}, {18, 12345, 98765}} {
		z, x, y := c[0], c[1], c[2]
		_, south, _, _ := TileLatLonBounds(z, x, y)
		assert.InDelta(t, formulaLat(z, y+1), south, 1e-9, "tile %d/%d/%d", z, x, y)
	}
}

func TestTileBoundsAdjacency(t *testing.T) {
	// The right edge of (z,x,y) is the left edge of (z,x+1,y).
	_, _, east, _ := TileLatLonBounds(3, 2, 5)
	west, _, _, _ := TileLatLonBounds(3, 3, 5)
	assert.InDelta(t, east, west, 1e-9)
}
