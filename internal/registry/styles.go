package registry

import (
	"image/color"

	"meteotiles/internal/render"
)

// builtinStyles is the style table keyed by style name. Stop tables
// follow the conventional NWS ramps.
func builtinStyles() map[string]render.Style {
	styles := map[string]render.Style{}

	styles["temperature"] = render.Style{
		Name: "temperature",
		Gradient: &render.GradientStyle{
			Unit: "C",
			Stops: []render.GradientStop{
				{Value: -40, R: 130, G: 22, B: 146},
				{Value: -30, R: 129, G: 43, B: 226},
				{Value: -20, R: 59, G: 76, B: 222},
				{Value: -10, R: 27, G: 138, B: 236},
				{Value: 0, R: 66, G: 215, B: 225},
				{Value: 10, R: 127, G: 212, B: 91},
				{Value: 20, R: 249, G: 208, B: 87},
				{Value: 30, R: 237, G: 120, B: 58},
				{Value: 40, R: 171, G: 34, B: 44},
			},
		},
	}

	styles["temperature_isolines"] = render.Style{
		Name: "temperature_isolines",
		Isolines: &render.IsolinesStyle{
			Interval:  5,
			LineWidth: 1,
			Color:     color.RGBA{60, 60, 60, 255},
			DomainMin: -60,
			DomainMax: 60,
			Unit:      "C",
		},
	}

	styles["isobars"] = render.Style{
		Name: "isobars",
		Isolines: &render.IsolinesStyle{
			Interval:  4,
			LineWidth: 2,
			Color:     color.RGBA{40, 40, 40, 255},
			DomainMin: 940,
			DomainMax: 1060,
			Unit:      "hPa",
		},
	}

	styles["reflectivity"] = render.Style{
		Name: "reflectivity",
		Gradient: &render.GradientStyle{
			Unit: "dBZ",
			Stops: []render.GradientStop{
				{Value: 5, R: 4, G: 233, B: 231},
				{Value: 15, R: 2, G: 253, B: 2},
				{Value: 25, R: 1, G: 197, B: 1},
				{Value: 35, R: 253, G: 248, B: 2},
				{Value: 45, R: 253, G: 139, B: 0},
				{Value: 55, R: 212, G: 0, B: 0},
				{Value: 65, R: 248, G: 0, B: 253},
				{Value: 75, R: 152, G: 84, B: 198},
			},
		},
	}

	styles["wind_barbs"] = render.Style{
		Name: "wind_barbs",
		WindBarbs: &render.WindBarbsStyle{
			SpacingPx: 50,
			StaffLen:  24,
			BarbAngle: 60,
			Color:     color.RGBA{20, 20, 20, 255},
		},
	}

	styles["visible"] = render.Style{
		Name:      "visible",
		Grayscale: &render.GrayscaleStyle{DomainMin: 0, DomainMax: 1},
	}

	// Enhancement curve: warm scene temperatures stay a gray ramp,
	// cold cloud tops step through color.
	styles["enhanced_ir"] = render.Style{
		Name: "enhanced_ir",
		EnhancedIR: &render.EnhancedIRStyle{
			Lookup: []render.GradientStop{
				{Value: 183, R: 255, G: 255, B: 255},
				{Value: 193, R: 254, G: 0, B: 246},
				{Value: 203, R: 135, G: 0, B: 145},
				{Value: 213, R: 230, G: 20, B: 20},
				{Value: 223, R: 255, G: 150, B: 0},
				{Value: 233, R: 255, G: 255, B: 0},
				{Value: 243, R: 0, G: 130, B: 20},
				{Value: 253, R: 0, G: 0, B: 246},
				{Value: 263, R: 120, G: 120, B: 120},
				{Value: 293, R: 60, G: 60, B: 60},
				{Value: 323, R: 0, G: 0, B: 0},
			},
		},
	}

	return styles
}
