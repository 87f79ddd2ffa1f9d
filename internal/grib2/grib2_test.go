package grib2

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteotiles/internal/grid"
)

// msgBuilder assembles a complete GRIB2 message for tests:
// 3x3 lat/lon grid, temperature at 2 m, simple packing unless a
// section is overridden.
type msgBuilder struct {
	discipline byte
	category   byte
	number     byte
	levelType  byte
	levelValue uint32
	scanMode   byte
	gdt        uint16
	drs        uint16
	nbits      byte
	reference  float32
	values     []uint16 // packed integers
	bitmap     []byte   // nil for indicator 255
	payload    []byte   // overrides packed values when set
	numPoints  uint32
}

func newMsgBuilder() *msgBuilder {
	return &msgBuilder{
		discipline: 0,
		category:   0,
		number:     0,
		levelType:  103,
		levelValue: 2,
		gdt:        0,
		drs:        0,
		nbits:      8,
		reference:  250,
		values:     []uint16{0, 10, 20, 30, 40, 50, 60, 70, 80},
		numPoints:  9,
	}
}

func u16(v uint16) []byte  { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32v(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

func (m *msgBuilder) section(num byte, body []byte) []byte {
	sec := make([]byte, 0, 5+len(body))
	sec = append(sec, u32v(uint32(5+len(body)))...)
	sec = append(sec, num)
	return append(sec, body...)
}

func (m *msgBuilder) build() []byte {
	var msg []byte

	// Section 0 placeholder; total length patched at the end.
	sec0 := make([]byte, 16)
	copy(sec0, "GRIB")
	sec0[6] = m.discipline
	sec0[7] = 2
	msg = append(msg, sec0...)

	// Section 1: NCEP, 2026-01-15 12:00 UTC.
	sec1 := make([]byte, 16)
	sec1 = append(sec1[:0],
		0x00, 0x07, // center
		0x00, 0x00, // subcenter
		2, 1, 1, // table versions, significance
	)
	sec1 = append(sec1, u16(2026)...)
	sec1 = append(sec1, 1, 15, 12, 0, 0, 0, 1)
	msg = append(msg, m.section(1, sec1)...)

	// Section 3: GDT 3.0, 3x3, 30-degree spacing from 60N/0E.
	g := make([]byte, 58)
	g[0] = 6 // shape of earth
	copy(g[16:20], u32v(3))
	copy(g[20:24], u32v(3))
	copy(g[32:36], u32v(60_000_000)) // La1
	copy(g[36:40], u32v(0))          // Lo1
	copy(g[41:45], u32v(0))          // La2 (unused)
	copy(g[45:49], u32v(60_000_000)) // Lo2
	copy(g[49:53], u32v(30_000_000)) // Di
	copy(g[53:57], u32v(30_000_000)) // Dj
	g[57] = m.scanMode
	body3 := append([]byte{0}, u32v(m.numPoints)...)
	body3 = append(body3, 0, 0)
	body3 = append(body3, u16(m.gdt)...)
	body3 = append(body3, g...)
	msg = append(msg, m.section(3, body3)...)

	// Section 4: PDT 4.0. The parameter category and number are the
	// first two octets of the template payload.
	body4 := append(u16(0), u16(0)...) // coord values, template 4.0
	body4 = append(body4, m.category, m.number)
	body4 = append(body4, 2, 0, 0, 0, 0, 0) // process ids, cutoff
	body4 = append(body4, 1)                // time unit: hours
	body4 = append(body4, u32v(6)...)       // forecast time
	body4 = append(body4, m.levelType, 0)
	body4 = append(body4, u32v(m.levelValue)...)
	body4 = append(body4, 255, 0)
	body4 = append(body4, u32v(0)...)
	msg = append(msg, m.section(4, body4)...)

	// Section 5. Its count is the number of values packed in section
	// 7: the bitmap-present points, not the grid size.
	npacked := uint32(len(m.values))
	if m.payload != nil {
		npacked = m.numPoints
	}
	body5 := u32v(npacked)
	body5 = append(body5, u16(m.drs)...)
	ref := make([]byte, 4)
	binary.BigEndian.PutUint32(ref, math.Float32bits(m.reference))
	body5 = append(body5, ref...)
	body5 = append(body5, u16(0)...) // binary scale 0
	body5 = append(body5, u16(1)...) // decimal scale 1
	body5 = append(body5, m.nbits, 0)
	if m.drs == 40 {
		body5 = append(body5, 0, 255)
	}
	msg = append(msg, m.section(5, body5)...)

	// Section 6.
	if m.bitmap != nil {
		msg = append(msg, m.section(6, append([]byte{0}, m.bitmap...))...)
	} else {
		msg = append(msg, m.section(6, []byte{255})...)
	}

	// Section 7.
	payload := m.payload
	if payload == nil {
		for _, v := range m.values {
			payload = append(payload, byte(v))
		}
	}
	msg = append(msg, m.section(7, payload)...)

	msg = append(msg, "7777"...)
	binary.BigEndian.PutUint64(msg[8:16], uint64(len(msg)))
	return msg
}

func TestDecodeSimplePacking(t *testing.T) {
	f, err := Decode(newMsgBuilder().build())
	require.NoError(t, err)

	assert.Equal(t, 3, f.Spec.Nx)
	assert.Equal(t, 3, f.Spec.Ny)
	assert.Equal(t, grid.Geographic, f.Spec.Projection)
	assert.Len(t, f.Values, 9)

	// value = (R + raw * 2^E) / 10^D with R=250, E=0, D=1.
	assert.InDelta(t, 25.0, float64(f.Values[0]), 1e-3)
	assert.InDelta(t, 26.0, float64(f.Values[1]), 1e-3)
	assert.InDelta(t, 33.0, float64(f.Values[8]), 1e-3)
}

func TestDecodeSection4Offsets(t *testing.T) {
	b := newMsgBuilder()
	b.category = 2
	b.number = 3
	f, err := Decode(b.build())
	require.NoError(t, err)
	assert.Equal(t, byte(2), f.ParameterCategory)
	assert.Equal(t, byte(3), f.ParameterNumber)
	assert.Equal(t, byte(103), f.LevelType)
	assert.InDelta(t, 2, f.LevelValue, 1e-9)
	assert.Equal(t, 6, f.ForecastHours)
	assert.Equal(t, 2026, f.ReferenceTime.Year())
}

func TestDecodeBitmapMarksMissing(t *testing.T) {
	b := newMsgBuilder()
	// Points 0,2,4,6,8 present: bits 10101010 1.
	b.bitmap = []byte{0xAA, 0x80}
	b.values = []uint16{0, 20, 40, 60, 80}
	f, err := Decode(b.build())
	require.NoError(t, err)

	assert.InDelta(t, 25.0, float64(f.Values[0]), 1e-3)
	assert.True(t, grid.IsMissing(f.Values[1]))
	assert.InDelta(t, 27.0, float64(f.Values[2]), 1e-3)
	assert.True(t, grid.IsMissing(f.Values[7]))
	assert.InDelta(t, 33.0, float64(f.Values[8]), 1e-3)
	assert.True(t, f.HasBitmap)

	// Missing is the NaN sentinel, never zero.
	assert.NotEqual(t, float32(0), f.Values[1])
}

func TestDecodePNGPacking(t *testing.T) {
	b := newMsgBuilder()
	b.drs = 41

	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := 0; i < 9; i++ {
		img.Pix[i] = byte(i * 10)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	b.payload = buf.Bytes()

	f, err := Decode(b.build())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, float64(f.Values[0]), 1e-3)
	assert.InDelta(t, 33.0, float64(f.Values[8]), 1e-3)
}

func TestDecodeTruncated(t *testing.T) {
	msg := newMsgBuilder().build()
	_, err := Decode(msg[:40])
	assert.True(t, errors.Is(err, ErrTruncated), "got %v", err)
}

func TestDecodeBadMagic(t *testing.T) {
	msg := newMsgBuilder().build()
	msg[0] = 'X'
	_, err := Decode(msg)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestDecodeUnknownGridTemplate(t *testing.T) {
	b := newMsgBuilder()
	b.gdt = 90 // space view: not supported
	_, err := Decode(b.build())
	assert.True(t, errors.Is(err, ErrUnsupportedProjection), "got %v", err)
}

func TestDecodeUnknownDRSTemplate(t *testing.T) {
	b := newMsgBuilder()
	b.drs = 3 // complex packing with spatial differencing
	_, err := Decode(b.build())
	assert.True(t, errors.Is(err, ErrUnknownTemplate), "got %v", err)
}

func TestDecodeRejectsExoticScanModes(t *testing.T) {
	b := newMsgBuilder()
	b.scanMode = 0x80 // i scans westward
	_, err := Decode(b.build())
	assert.True(t, errors.Is(err, ErrUnsupportedProjection), "got %v", err)
}

func TestDecodeBitmapLengthMismatch(t *testing.T) {
	b := newMsgBuilder()
	b.bitmap = []byte{0xAA} // 8 bits for 9 points
	_, err := Decode(b.build())
	assert.True(t, errors.Is(err, ErrBitmapMismatch), "got %v", err)
}

func TestDecodeBitmapSelectsMoreThanPacked(t *testing.T) {
	b := newMsgBuilder()
	b.bitmap = []byte{0xFF, 0x80} // all 9 present
	b.values = []uint16{1, 2, 3}  // too few packed values
	_, err := Decode(b.build())
	assert.Error(t, err)
}

func TestDecodeCorruptPNGPayload(t *testing.T) {
	b := newMsgBuilder()
	b.drs = 41
	b.payload = []byte{1, 2, 3, 4}
	_, err := Decode(b.build())
	assert.True(t, errors.Is(err, ErrDecompression), "got %v", err)
}

func TestSplitMessages(t *testing.T) {
	one := newMsgBuilder().build()
	two := newMsgBuilder().build()
	msgs, err := SplitMessages(append(append([]byte{}, one...), two...))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, one, msgs[0])
}

func TestSplitMessagesTruncated(t *testing.T) {
	one := newMsgBuilder().build()
	_, err := SplitMessages(one[:len(one)-8])
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestIdentifyWithoutUnpacking(t *testing.T) {
	b := newMsgBuilder()
	b.category = 16
	b.number = 195
	id, err := Identify(b.build())
	require.NoError(t, err)
	assert.Equal(t, byte(16), id.ParameterCategory)
	assert.Equal(t, byte(195), id.ParameterNumber)
}

func TestGlobalDetectionAndConvention(t *testing.T) {
	// The 3x3/30-degree test grid is not global, and with Lo1=0 and
	// Lo2=60 it is indexed in signed longitudes.
	f, err := Decode(newMsgBuilder().build())
	require.NoError(t, err)
	assert.False(t, f.Spec.GlobalLon)
	assert.Equal(t, grid.LonSigned, f.Spec.LonConvention)
}

func TestBitReader(t *testing.T) {
	r := &bitReader{data: []byte{0b10110100, 0b01000000}}
	v, err := r.read(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b101), v)
	v, err = r.read(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b101000), v)
	_, err = r.read(10)
	assert.Error(t, err)
}

func TestScaleFactorSignMagnitude(t *testing.T) {
	assert.Equal(t, 3, decodeScaleFactor(0x0003))
	assert.Equal(t, -3, decodeScaleFactor(0x8003))
	assert.InDelta(t, -12.5, signedMicrodeg(0x80000000|12_500_000), 1e-9)
}
