package proj

import (
	"math"

	"meteotiles/internal/grid"
)

// OutputCRS selects how an output grid's bbox is interpreted.
type OutputCRS int

const (
	// CRSGeographic: bbox in WGS84 degrees (EPSG:4326 / CRS:84).
	CRSGeographic OutputCRS = iota
	// CRSWebMercator: bbox in EPSG:3857 metres.
	CRSWebMercator
)

// OutputGrid is the pixel window a tile render fills: a bbox in a
// declared CRS stepped at WxH pixel centers, x increasing east and
// row 0 at the top.
type OutputGrid struct {
	W, H                   int
	CRS                    OutputCRS
	MinX, MinY, MaxX, MaxY float64
}

// TileOutputGrid is the output grid of XYZ tile (z,x,y) at the given
// pixel size, in Web Mercator.
func TileOutputGrid(z, x, y, size int) OutputGrid {
	minx, miny, maxx, maxy := TileBounds(z, x, y)
	return OutputGrid{W: size, H: size, CRS: CRSWebMercator, MinX: minx, MinY: miny, MaxX: maxx, MaxY: maxy}
}

// LatLon returns the geographic coordinate of the center of pixel
// (i,j).
func (g OutputGrid) LatLon(i, j int) (lat, lon float64) {
	x := g.MinX + (float64(i)+0.5)*(g.MaxX-g.MinX)/float64(g.W)
	y := g.MaxY - (float64(j)+0.5)*(g.MaxY-g.MinY)/float64(g.H)
	if g.CRS == CRSWebMercator {
		return MetersToLatLon(x, y)
	}
	return y, x
}

// Inverse maps a geographic coordinate into fractional source grid
// indexes (u,v) for the given grid. ok is false where the point has no
// defined source coordinate (e.g. off the geostationary disk).
//
// Longitude normalization into the source convention happens here and
// only here.
func Inverse(spec grid.GridSpec, lat, lon float64) (u, v float64, ok bool) {
	switch spec.Projection {
	case grid.Geographic:
		return inverseGeographic(spec, lat, lon)
	case grid.LambertConformal:
		return inverseLambert(spec, lat, lon)
	case grid.Geostationary:
		return inverseGeostationary(spec, lat, lon)
	case grid.Mercator:
		return inverseMercatorGrid(spec, lat, lon)
	default:
		return 0, 0, false
	}
}

func normalizeLon(lon float64, conv grid.LonConvention) float64 {
	switch conv {
	case grid.Lon0To360:
		for lon < 0 {
			lon += 360
		}
		for lon >= 360 {
			lon -= 360
		}
	default:
		for lon < -180 {
			lon += 360
		}
		for lon >= 180 {
			lon -= 360
		}
	}
	return lon
}

func inverseGeographic(spec grid.GridSpec, lat, lon float64) (u, v float64, ok bool) {
	lon = normalizeLon(lon, spec.LonConvention)
	u = (lon - spec.Lo1) / spec.Dx
	if spec.GlobalLon {
		// Wrap into [0,nx) so the sampler's modulo stays cheap.
		n := float64(spec.Nx)
		u = math.Mod(math.Mod(u, n)+n, n)
	}
	if spec.RowsSouthToNorth {
		v = (lat - spec.La1) / spec.Dy
	} else {
		v = (spec.La1 - lat) / spec.Dy
	}
	return u, v, true
}

// inverseLambert forward-projects into the source's grid metres using
// its standard parallels and central meridian (spherical form, matching
// the radius GRIB2 shape-of-earth 6 declares).
func inverseLambert(spec grid.GridSpec, lat, lon float64) (u, v float64, ok bool) {
	p := spec.Lambert
	const rad = math.Pi / 180
	const r = 6371229.0

	phi1 := p.Latin1 * rad
	phi2 := p.Latin2 * rad
	var n float64
	if math.Abs(phi1-phi2) < 1e-9 {
		n = math.Sin(phi1)
	} else {
		n = math.Log(math.Cos(phi1)/math.Cos(phi2)) /
			math.Log(math.Tan(math.Pi/4+phi2/2)/math.Tan(math.Pi/4+phi1/2))
	}
	f := math.Cos(phi1) * math.Pow(math.Tan(math.Pi/4+phi1/2), n) / n

	project := func(latD, lonD float64) (x, y float64) {
		phi := latD * rad
		dlon := lonD - p.LoV
		for dlon > 180 {
			dlon -= 360
		}
		for dlon < -180 {
			dlon += 360
		}
		rho := r * f / math.Pow(math.Tan(math.Pi/4+phi/2), n)
		theta := n * dlon * rad
		return rho * math.Sin(theta), -rho * math.Cos(theta)
	}

	x1, y1 := project(p.La1, p.Lo1)
	x, y := project(lat, lon)
	u = (x - x1) / p.Dx
	// HRRR scans south to north; stored row 0 is the first (southern)
	// row, so v grows with projected y.
	if spec.RowsSouthToNorth {
		v = (y - y1) / p.Dy
	} else {
		v = (y1 - y) / p.Dy
	}
	return u, v, true
}

// inverseGeostationary converts (lat,lon) on the ellipsoid to scan
// angles using the satellite perspective equations, then to grid
// indexes via the NetCDF-declared scale/offset.
func inverseGeostationary(spec grid.GridSpec, lat, lon float64) (u, v float64, ok bool) {
	p := spec.Geo
	const rad = math.Pi / 180

	req := p.SemiMajor
	rpol := p.SemiMinor
	if req == 0 {
		req, rpol = 6378137.0, 6356752.31414
	}
	h := p.PerspectiveHeight + req

	phi := lat * rad
	lam := (lon - p.LonOrigin) * rad

	// Geocentric latitude on the ellipsoid.
	phiC := math.Atan(rpol * rpol / (req * req) * math.Tan(phi))
	e2 := (req*req - rpol*rpol) / (req * req)
	rc := rpol / math.Sqrt(1-e2*math.Cos(phiC)*math.Cos(phiC))

	sx := h - rc*math.Cos(phiC)*math.Cos(lam)
	sy := -rc * math.Cos(phiC) * math.Sin(lam)
	sz := rc * math.Sin(phiC)

	// Point behind the limb is not visible from the satellite.
	if h*(h-sx) < sy*sy+req*req/(rpol*rpol)*sz*sz {
		return 0, 0, false
	}

	rn := math.Sqrt(sx*sx + sy*sy + sz*sz)
	var ax, ay float64
	if p.SweepAxis == "y" {
		ax = math.Atan(-sy / sx)
		ay = math.Asin(sz / rn)
	} else {
		// GOES-R sweeps along x.
		ax = math.Asin(-sy / rn)
		ay = math.Atan(sz / sx)
	}

	if p.XScale == 0 || p.YScale == 0 {
		return 0, 0, false
	}
	u = (ax - p.XOffset) / p.XScale
	v = (ay - p.YOffset) / p.YScale
	return u, v, true
}

func inverseMercatorGrid(spec grid.GridSpec, lat, lon float64) (u, v float64, ok bool) {
	lon = normalizeLon(lon, spec.LonConvention)
	x, y := LatLonToMeters(lat, lon)
	x1, y1 := LatLonToMeters(spec.La1, spec.Lo1)
	u = (x - x1) / spec.Dx
	if spec.RowsSouthToNorth {
		v = (y - y1) / spec.Dy
	} else {
		v = (y1 - y) / spec.Dy
	}
	return u, v, true
}

// LUT caches the (u,v) mapping of one output grid into one source
// grid. Computing it once and reusing it across the channels of a
// composite render avoids repeating expensive inverse projections.
type LUT struct {
	W, H int
	U, V []float32
	OK   []bool
}

// BuildLUT evaluates the inverse projection at every output pixel.
func BuildLUT(out OutputGrid, spec grid.GridSpec) *LUT {
	l := &LUT{
		W: out.W, H: out.H,
		U:  make([]float32, out.W*out.H),
		V:  make([]float32, out.W*out.H),
		OK: make([]bool, out.W*out.H),
	}
	for j := 0; j < out.H; j++ {
		for i := 0; i < out.W; i++ {
			lat, lon := out.LatLon(i, j)
			u, v, ok := Inverse(spec, lat, lon)
			idx := j*out.W + i
			l.U[idx] = float32(u)
			l.V[idx] = float32(v)
			l.OK[idx] = ok
		}
	}
	return l
}
