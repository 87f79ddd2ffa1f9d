package grid

// Unit conversions applied before style lookup. Styles declare their
// domain in display units; source fields arrive in native units.

// KelvinToCelsius converts a temperature value.
func KelvinToCelsius(k float32) float32 { return k - 273.15 }

// PascalsToHectopascals converts a pressure value.
func PascalsToHectopascals(pa float32) float32 { return pa / 100 }

// MetersPerSecondToKnots converts a wind speed value.
func MetersPerSecondToKnots(ms float64) float64 { return ms * 1.9438444924406046 }

// Convert maps a value from a named source unit into the unit a style
// expects. Unknown units pass through untouched.
func Convert(v float32, from, to string) float32 {
	if from == to {
		return v
	}
	switch {
	case from == "K" && to == "C":
		return KelvinToCelsius(v)
	case from == "Pa" && to == "hPa":
		return PascalsToHectopascals(v)
	case from == "m/s" && to == "kt":
		return float32(MetersPerSecondToKnots(float64(v)))
	default:
		return v
	}
}
