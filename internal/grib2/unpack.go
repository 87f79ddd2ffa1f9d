package grib2

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"meteotiles/internal/grid"
)

// drsParams are the packing parameters shared by DRS templates 5.0,
// 5.40 and 5.41: value = (R + packed * 2^E) / 10^D.
type drsParams struct {
	template  uint16
	numPacked int
	reference float64
	binScale  int
	decScale  int
	nbits     int
}

func parseSection5(sec []byte) (drsParams, error) {
	if sec == nil || len(sec) < 11 {
		return drsParams{}, errors.Wrap(ErrTruncated, "section 5 missing")
	}
	p := drsParams{
		numPacked: int(binary.BigEndian.Uint32(sec[5:9])),
		template:  binary.BigEndian.Uint16(sec[9:11]),
	}
	switch p.template {
	case 0, 40, 41:
	default:
		return drsParams{}, errors.Wrapf(ErrUnknownTemplate, "data representation template %d", p.template)
	}
	if len(sec) < 20 {
		return drsParams{}, errors.Wrapf(ErrTruncated, "DRS 5.%d too short", p.template)
	}
	p.reference = float64(math.Float32frombits(binary.BigEndian.Uint32(sec[11:15])))
	p.binScale = decodeScaleFactor(binary.BigEndian.Uint16(sec[15:17]))
	p.decScale = decodeScaleFactor(binary.BigEndian.Uint16(sec[17:19]))
	p.nbits = int(sec[19])
	if p.nbits > 32 {
		return drsParams{}, errors.Wrapf(ErrDecompression, "bits per value %d", p.nbits)
	}
	return p, nil
}

// unpackData decodes the section-7 payload per the section-5 template,
// then applies the section-6 bitmap, marking masked points with the
// NaN sentinel.
func unpackData(sec5, sec6, sec7 []byte, npts int) ([]float32, error) {
	p, err := parseSection5(sec5)
	if err != nil {
		return nil, err
	}
	if sec7 == nil || len(sec7) < 5 {
		return nil, errors.Wrap(ErrTruncated, "section 7 missing")
	}
	payload := sec7[5:]

	var raw []uint32
	switch p.template {
	case 0:
		raw, err = unpackSimple(payload, p)
	case 40:
		raw, err = decodeJPEG2000(payload, p)
	case 41:
		raw, err = decodePNGPacked(payload, p)
	}
	if err != nil {
		return nil, err
	}

	scale := math.Pow(2, float64(p.binScale)) / math.Pow(10, float64(p.decScale))
	ref := p.reference / math.Pow(10, float64(p.decScale))

	bitmap, err := parseBitmap(sec6, npts)
	if err != nil {
		return nil, err
	}

	values := make([]float32, npts)
	if bitmap == nil {
		if len(raw) < npts {
			return nil, errors.Wrapf(ErrDecompression, "%d packed values for %d grid points", len(raw), npts)
		}
		for i := 0; i < npts; i++ {
			values[i] = float32(ref + float64(raw[i])*scale)
		}
		return values, nil
	}

	// With a bitmap, section 7 carries only the present points.
	k := 0
	for i := 0; i < npts; i++ {
		if !bitmap[i] {
			values[i] = grid.Missing()
			continue
		}
		if k >= len(raw) {
			return nil, errors.Wrapf(ErrBitmapMismatch, "bitmap selects more points than packed values (%d)", len(raw))
		}
		values[i] = float32(ref + float64(raw[k])*scale)
		k++
	}
	return values, nil
}

// unpackSimple reads fixed-width big-endian fields (DRS 5.0). A zero
// bit width means every value equals the reference.
func unpackSimple(payload []byte, p drsParams) ([]uint32, error) {
	raw := make([]uint32, p.numPacked)
	if p.nbits == 0 {
		return raw, nil
	}
	r := &bitReader{data: payload}
	for i := range raw {
		v, err := r.read(p.nbits)
		if err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		raw[i] = uint32(v)
	}
	return raw, nil
}

// parseBitmap expands section 6 into a presence mask, or nil when no
// bitmap applies. Indicator 254 (previously defined) is not supported
// for standalone messages.
func parseBitmap(sec6 []byte, npts int) ([]bool, error) {
	if sec6 == nil || len(sec6) < 6 {
		return nil, nil
	}
	switch sec6[5] {
	case 255:
		return nil, nil
	case 0:
	default:
		return nil, errors.Wrapf(ErrUnknownTemplate, "bitmap indicator %d", sec6[5])
	}
	bits := sec6[6:]
	if len(bits)*8 < npts {
		return nil, errors.Wrapf(ErrBitmapMismatch, "bitmap %d bits for %d points", len(bits)*8, npts)
	}
	mask := make([]bool, npts)
	for i := 0; i < npts; i++ {
		mask[i] = bits[i>>3]&(1<<uint(7-(i&7))) != 0
	}
	return mask, nil
}
