package render

import "image/color"

// Style is the tagged style variant applied to a resampled field.
// Exactly one of the pointers is set; the dispatcher routes on it.
type Style struct {
	Name string

	Gradient   *GradientStyle
	Isolines   *IsolinesStyle
	WindBarbs  *WindBarbsStyle
	Grayscale  *GrayscaleStyle
	EnhancedIR *EnhancedIRStyle
}

// Composite reports whether the style consumes more than one source
// field (wind barbs need U and V).
func (s Style) Composite() bool { return s.WindBarbs != nil }

// GradientStyle maps values through a sorted stop table.
type GradientStyle struct {
	Stops []GradientStop
	// Unit the stop values are expressed in; source values are
	// converted before lookup.
	Unit string
}

type GradientStop struct {
	Value   float64
	R, G, B uint8
}

// IsolinesStyle draws contour lines at a fixed interval.
type IsolinesStyle struct {
	Interval  float64
	LineWidth int // 1-4 px
	Color     color.RGBA
	// Level enumeration bounds in display units.
	DomainMin, DomainMax float64
	Unit                 string
}

// WindBarbsStyle draws meteorological wind barbs from a U+V pair.
type WindBarbsStyle struct {
	SpacingPx int // sparse glyph grid, defaults 40-60
	StaffLen  int
	BarbAngle float64 // degrees off the staff
	Color     color.RGBA
}

// GrayscaleStyle linearly normalizes values into 0-255 (GOES visible).
type GrayscaleStyle struct {
	DomainMin, DomainMax float64
}

// EnhancedIRStyle highlights cold cloud tops through a piecewise
// temperature lookup (GOES IR).
type EnhancedIRStyle struct {
	Lookup []GradientStop // brightness temperature in K, ascending
}
