package grid

import (
	"fmt"
	"math"
)

// Projection identifies the native projection of a source grid. The
// resampler dispatches its inverse-projection routine on this tag.
type Projection int

const (
	Geographic Projection = iota
	LambertConformal
	Geostationary
	Mercator
)

func (p Projection) String() string {
	switch p {
	case Geographic:
		return "geographic"
	case LambertConformal:
		return "lambert_conformal"
	case Geostationary:
		return "geostationary"
	case Mercator:
		return "mercator"
	default:
		return fmt.Sprintf("projection(%d)", int(p))
	}
}

// LonConvention is the longitude range the source grid is indexed in.
type LonConvention int

const (
	// LonSigned means longitudes run -180..180 (MRMS, GOES).
	LonSigned LonConvention = iota
	// Lon0To360 means longitudes run 0..360 (GFS).
	Lon0To360
)

// LambertParams are the Lambert conformal conic parameters carried by
// HRRR grids (GRIB2 GDT 3.30).
type LambertParams struct {
	// First grid point, degrees.
	La1, Lo1 float64
	// Central meridian, degrees.
	LoV float64
	// Standard parallels, degrees.
	Latin1, Latin2 float64
	// Grid spacing, metres.
	Dx, Dy float64
}

// GeostationaryParams are the perspective parameters declared by GOES
// NetCDF products.
type GeostationaryParams struct {
	// Height of the satellite above the ellipsoid, metres.
	PerspectiveHeight float64
	// Sub-satellite longitude, degrees.
	LonOrigin float64
	// "x" or "y"; GOES-R uses "x".
	SweepAxis string
	// Scan-angle scale/offset mapping grid index to radians:
	// angle = index*Scale + Offset.
	XScale, YScale   float64
	XOffset, YOffset float64
	// Ellipsoid.
	SemiMajor, SemiMinor float64
}

// GridSpec describes the geometry and georeference of a source grid.
// It is intrinsic to the source product and immutable.
type GridSpec struct {
	Projection Projection
	Nx, Ny     int

	// Geographic grids: first point and spacing in degrees. Rows are
	// stored north-to-south unless RowsSouthToNorth is set (GRIB2 scan
	// mode bit 0x40).
	La1, Lo1, Dx, Dy float64
	RowsSouthToNorth bool
	// GlobalLon is set when the grid spans the full longitude circle,
	// enabling wraparound sampling at the antimeridian.
	GlobalLon bool

	LonConvention LonConvention

	Lambert LambertParams
	Geo     GeostationaryParams
}

// Missing is the sentinel for bitmap-masked grid points. Callers must
// test with IsMissing, never by equality.
func Missing() float32 { return float32(math.NaN()) }

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float32) bool { return v != v }

// DecodedField is a decoded, georeferenced scalar array. It is created
// once by a decoder and never mutated afterwards; renders share it by
// reference through the field cache.
type DecodedField struct {
	Values []float32
	Spec   GridSpec

	// Range over valid (non-missing) points.
	MinValue, MaxValue float32
	Units              string
	HasBitmap          bool
}

// NewDecodedField validates the value slice against the grid geometry
// and computes the value range.
func NewDecodedField(values []float32, spec GridSpec, units string, hasBitmap bool) (*DecodedField, error) {
	if len(values) != spec.Nx*spec.Ny {
		return nil, fmt.Errorf("grid: %d values for %dx%d grid", len(values), spec.Nx, spec.Ny)
	}
	f := &DecodedField{
		Values:    values,
		Spec:      spec,
		Units:     units,
		HasBitmap: hasBitmap,
	}
	f.MinValue, f.MaxValue = valueRange(values)
	return f, nil
}

func valueRange(values []float32) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// At returns the value at column u, row v with edge clamping. Row 0 is
// the first stored row regardless of scan direction.
func (f *DecodedField) At(u, v int) float32 {
	nx, ny := f.Spec.Nx, f.Spec.Ny
	if u < 0 {
		u = 0
	} else if u >= nx {
		u = nx - 1
	}
	if v < 0 {
		v = 0
	} else if v >= ny {
		v = ny - 1
	}
	return f.Values[v*nx+u]
}

// AtWrapped is At with the column wrapped modulo Nx, for global
// geographic grids sampled across the antimeridian.
func (f *DecodedField) AtWrapped(u, v int) float32 {
	nx, ny := f.Spec.Nx, f.Spec.Ny
	u = ((u % nx) + nx) % nx
	if v < 0 {
		v = 0
	} else if v >= ny {
		v = ny - 1
	}
	return f.Values[v*nx+u]
}

// SizeBytes estimates the memory held by the field, used by the field
// cache to enforce its aggregate budget.
func (f *DecodedField) SizeBytes() int64 {
	return int64(len(f.Values))*4 + 256
}

// FieldKey identifies a decoded field irrespective of the tiles
// consuming it. It is the sharing key of the source-field cache.
type FieldKey struct {
	Model     string
	Parameter string
	Level     string
	// Empty for static layers, valid-time ISO string for observations,
	// "reftime/fNNN" for forecasts.
	TimeDiscriminant string
}

func (k FieldKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Model, k.Parameter, k.Level, k.TimeDiscriminant)
}

// TileKey identifies one produced tile. Two equal keys produce
// byte-identical PNGs.
type TileKey struct {
	Layer, Style     string
	Z, X, Y          int
	TimeDiscriminant string
}

func (k TileKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%d/%d/%s", k.Layer, k.Style, k.Z, k.X, k.Y, k.TimeDiscriminant)
}
