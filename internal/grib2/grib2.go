package grib2

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	"meteotiles/internal/grid"
)

// Field is one decoded GRIB2 message: the grid plus the identity
// metadata a loader needs to pick the right message out of a
// multi-message file.
type Field struct {
	*grid.DecodedField

	Discipline        byte
	ParameterCategory byte
	ParameterNumber   byte
	LevelType         byte
	LevelValue        float64
	ReferenceTime     time.Time
	ForecastHours     int
}

type sections struct {
	sec1, sec3, sec4, sec5, sec6, sec7 []byte
}

// Decode parses a single GRIB2 message (edition 2) into a Field.
func Decode(msg []byte) (*Field, error) {
	if len(msg) < 16 {
		return nil, errors.Wrap(ErrTruncated, "section 0 needs 16 bytes")
	}
	if string(msg[0:4]) != "GRIB" {
		return nil, errors.Wrap(ErrTruncated, "missing GRIB magic")
	}
	discipline := msg[6]
	if edition := msg[7]; edition != 2 {
		return nil, errors.Wrapf(ErrUnknownTemplate, "GRIB edition %d", edition)
	}
	total := binary.BigEndian.Uint64(msg[8:16])
	if total > uint64(len(msg)) {
		return nil, errors.Wrapf(ErrTruncated, "message declares %d bytes, %d available", total, len(msg))
	}

	secs, err := walkSections(msg[:total])
	if err != nil {
		return nil, err
	}

	refTime, err := parseSection1(secs.sec1)
	if err != nil {
		return nil, err
	}
	spec, npts, err := parseSection3(secs.sec3)
	if err != nil {
		return nil, err
	}
	pd, err := parseSection4(secs.sec4)
	if err != nil {
		return nil, err
	}
	values, err := unpackData(secs.sec5, secs.sec6, secs.sec7, npts)
	if err != nil {
		return nil, err
	}

	hasBitmap := len(secs.sec6) > 5 && secs.sec6[5] == 0
	df, err := grid.NewDecodedField(values, spec, "", hasBitmap)
	if err != nil {
		return nil, errors.Wrap(ErrBitmapMismatch, err.Error())
	}

	return &Field{
		DecodedField:      df,
		Discipline:        discipline,
		ParameterCategory: pd.category,
		ParameterNumber:   pd.number,
		LevelType:         pd.levelType,
		LevelValue:        pd.levelValue,
		ReferenceTime:     refTime,
		ForecastHours:     pd.forecastHours,
	}, nil
}

// walkSections reads sections 1..7 in order. Section 2 (local use) is
// skipped; a repeated-section message keeps the last occurrence, which
// matches single-field products.
func walkSections(msg []byte) (sections, error) {
	var s sections
	off := 16
	for off < len(msg) {
		if len(msg)-off >= 4 && string(msg[off:off+4]) == "7777" {
			if s.sec7 == nil {
				return s, errors.Wrap(ErrTruncated, "end marker before section 7")
			}
			return s, nil
		}
		if len(msg)-off < 5 {
			return s, errors.Wrapf(ErrTruncated, "section header at %d", off)
		}
		slen := binary.BigEndian.Uint32(msg[off : off+4])
		num := msg[off+4]
		end := uint64(off) + uint64(slen)
		if slen < 5 || end > uint64(len(msg)) {
			return s, errors.Wrapf(ErrTruncated, "section %d at %d declares %d bytes", num, off, slen)
		}
		sec := msg[off:end]
		switch num {
		case 1:
			s.sec1 = sec
		case 2:
			// local use
		case 3:
			s.sec3 = sec
		case 4:
			s.sec4 = sec
		case 5:
			s.sec5 = sec
		case 6:
			s.sec6 = sec
		case 7:
			s.sec7 = sec
		default:
			return s, errors.Wrapf(ErrUnknownTemplate, "section number %d", num)
		}
		off = int(end)
	}
	return s, errors.Wrap(ErrTruncated, "missing 7777 end marker")
}

func parseSection1(sec []byte) (time.Time, error) {
	if len(sec) < 21 {
		return time.Time{}, errors.Wrap(ErrTruncated, "section 1 too short")
	}
	year := int(binary.BigEndian.Uint16(sec[12:14]))
	return time.Date(year, time.Month(sec[14]), int(sec[15]),
		int(sec[16]), int(sec[17]), int(sec[18]), 0, time.UTC), nil
}

const maxGridDim = 30000

// parseSection3 extracts the grid geometry. Supported grid definition
// templates: 3.0 (latitude/longitude) and 3.30 (Lambert conformal).
func parseSection3(sec []byte) (grid.GridSpec, int, error) {
	if sec == nil || len(sec) < 14 {
		return grid.GridSpec{}, 0, errors.Wrap(ErrTruncated, "section 3 missing")
	}
	npts := int(binary.BigEndian.Uint32(sec[6:10]))
	tmpl := binary.BigEndian.Uint16(sec[12:14])
	g := sec[14:]
	u32 := func(off int) uint32 {
		return binary.BigEndian.Uint32(g[off : off+4])
	}

	switch tmpl {
	case 0: // latitude/longitude
		if len(g) < 58 {
			return grid.GridSpec{}, 0, errors.Wrap(ErrTruncated, "GDT 3.0 too short")
		}
		ni := int(u32(16))
		nj := int(u32(20))
		if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
			return grid.GridSpec{}, 0, errors.Wrapf(ErrUnsupportedProjection, "grid dimensions %dx%d", ni, nj)
		}
		la1 := signedMicrodeg(u32(32))
		lo1 := float64(u32(36)) / 1e6
		lo2 := float64(u32(45)) / 1e6
		di := float64(u32(49)) / 1e6
		dj := float64(u32(53)) / 1e6
		scan := g[57]
		if scan&^byte(0x40) != 0 {
			return grid.GridSpec{}, 0, errors.Wrapf(ErrUnsupportedProjection, "scan mode 0x%02X", scan)
		}

		conv := grid.LonSigned
		if lo1 > 180 || lo2 > 180 || (lo1 == 0 && lo2 > 180) {
			conv = grid.Lon0To360
		}
		// Global when the columns cover the full circle within one step.
		global := float64(ni)*di >= 360-di/2

		return grid.GridSpec{
			Projection:       grid.Geographic,
			Nx:               ni,
			Ny:               nj,
			La1:              la1,
			Lo1:              lo1,
			Dx:               di,
			Dy:               dj,
			RowsSouthToNorth: scan&0x40 != 0,
			GlobalLon:        global,
			LonConvention:    conv,
		}, npts, nil

	case 30: // Lambert conformal
		if len(g) < 67 {
			return grid.GridSpec{}, 0, errors.Wrap(ErrTruncated, "GDT 3.30 too short")
		}
		nx := int(u32(16))
		ny := int(u32(20))
		if nx <= 0 || nx > maxGridDim || ny <= 0 || ny > maxGridDim {
			return grid.GridSpec{}, 0, errors.Wrapf(ErrUnsupportedProjection, "grid dimensions %dx%d", nx, ny)
		}
		la1 := signedMicrodeg(u32(24))
		lo1 := float64(u32(28)) / 1e6
		lov := float64(u32(37)) / 1e6
		dx := float64(u32(41)) / 1e3 // mm -> m
		dy := float64(u32(45)) / 1e3
		scan := g[50]
		if scan != 0x40 && scan != 0x00 {
			return grid.GridSpec{}, 0, errors.Wrapf(ErrUnsupportedProjection, "scan mode 0x%02X", scan)
		}
		latin1 := signedMicrodeg(u32(51))
		latin2 := signedMicrodeg(u32(55))

		return grid.GridSpec{
			Projection:       grid.LambertConformal,
			Nx:               nx,
			Ny:               ny,
			RowsSouthToNorth: scan&0x40 != 0,
			LonConvention:    grid.Lon0To360,
			Lambert: grid.LambertParams{
				La1:    la1,
				Lo1:    lo1,
				LoV:    lov,
				Latin1: latin1,
				Latin2: latin2,
				Dx:     dx,
				Dy:     dy,
			},
		}, npts, nil

	default:
		return grid.GridSpec{}, 0, errors.Wrapf(ErrUnsupportedProjection, "grid definition template %d", tmpl)
	}
}

type productDef struct {
	category      byte
	number        byte
	levelType     byte
	levelValue    float64
	forecastHours int
}

// parseSection4 reads the product definition. The parameter category
// and number sit at bytes 9 and 10 of the section for PDT 4.0/4.8 —
// i.e. the first two octets of the template payload.
func parseSection4(sec []byte) (productDef, error) {
	if sec == nil || len(sec) < 11 {
		return productDef{}, errors.Wrap(ErrTruncated, "section 4 missing")
	}
	tmpl := binary.BigEndian.Uint16(sec[7:9])
	switch tmpl {
	case 0, 8: // analysis/forecast, and its statistically-processed form
	default:
		return productDef{}, errors.Wrapf(ErrUnknownTemplate, "product definition template %d", tmpl)
	}

	pd := productDef{
		category: sec[9],
		number:   sec[10],
	}

	if len(sec) >= 29 {
		unit := sec[17]
		fc := int(int32(binary.BigEndian.Uint32(sec[18:22])))
		switch unit {
		case 0: // minutes
			pd.forecastHours = fc / 60
		case 1: // hours
			pd.forecastHours = fc
		case 2: // days
			pd.forecastHours = fc * 24
		case 10: // 3 hours
			pd.forecastHours = fc * 3
		case 11: // 6 hours
			pd.forecastHours = fc * 6
		}

		pd.levelType = sec[22]
		scale := int(int8(sec[23]))
		val := float64(binary.BigEndian.Uint32(sec[24:28]))
		pd.levelValue = val * math.Pow10(-scale)
	}
	return pd, nil
}
