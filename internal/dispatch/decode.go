package dispatch

import (
	"fmt"

	"meteotiles/internal/grib2"
	"meteotiles/internal/grid"
	"meteotiles/internal/netcdf"
	"meteotiles/internal/registry"
)

// decodeGRIB2Field finds the message matching the field spec in a
// possibly multi-message file and decodes it. Identification parses
// only headers, so scanning a large file for one field stays cheap.
func decodeGRIB2Field(data []byte, fs registry.FieldSpec) (*grid.DecodedField, error) {
	msgs, err := grib2.SplitMessages(data)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		id, err := grib2.Identify(msg)
		if err != nil {
			// A malformed sibling message must not mask the one we
			// want.
			continue
		}
		if id.ParameterCategory != fs.GRIBCategory || id.ParameterNumber != fs.GRIBNumber {
			continue
		}
		if !levelMatches(fs.Level, id.LevelType, id.LevelValue) {
			continue
		}
		f, err := grib2.Decode(msg)
		if err != nil {
			return nil, err
		}
		f.DecodedField.Units = fs.Units
		return f.DecodedField, nil
	}
	return nil, fmt.Errorf("no GRIB2 message for category %d number %d level %q",
		fs.GRIBCategory, fs.GRIBNumber, fs.Level)
}

// levelMatches maps the registry's level vocabulary onto GRIB2 fixed
// surface codes. An empty spec level accepts any surface.
func levelMatches(level string, levelType byte, levelValue float64) bool {
	switch level {
	case "":
		return true
	case "surface":
		return levelType == 1
	case "2m":
		return levelType == 103 && levelValue == 2
	case "10m":
		return levelType == 103 && levelValue == 10
	case "msl":
		return levelType == 101
	case "entire":
		return levelType == 10 || levelType == 200
	default:
		// Pressure levels: "500hPa" style.
		var hpa float64
		if _, err := fmt.Sscanf(level, "%fhPa", &hpa); err == nil {
			return levelType == 100 && levelValue == hpa*100
		}
		return false
	}
}

func decodeNetCDFField(data []byte, fs registry.FieldSpec) (*grid.DecodedField, error) {
	f, err := netcdf.DecodeGOES(data, fs.NetCDFVar)
	if err != nil {
		return nil, err
	}
	if fs.Units != "" {
		f.Units = fs.Units
	}
	return f, nil
}
