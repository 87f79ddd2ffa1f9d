package netcdf

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsNonHDF5(t *testing.T) {
	_, err := openHDF5([]byte("GRIB....not hdf5 at all......"))
	assert.True(t, errors.Is(err, ErrNotHDF5))

	_, err = Open([]byte{0x89, 'H', 'D', 'F'})
	assert.True(t, errors.Is(err, ErrNotHDF5))
}

func TestOpenRejectsUnsupportedSuperblock(t *testing.T) {
	data := make([]byte, 64)
	copy(data, hdf5Magic)
	data[8] = 9
	_, err := openHDF5(data)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestSuperblockV2RootAddress(t *testing.T) {
	data := make([]byte, 128)
	copy(data, hdf5Magic)
	data[8] = 2 // superblock version
	data[9] = 8 // offset size
	data[10] = 8
	binary.LittleEndian.PutUint64(data[12:], 0)             // base
	binary.LittleEndian.PutUint64(data[20:], undefinedAddr) // extension
	binary.LittleEndian.PutUint64(data[28:], 128)           // eof
	binary.LittleEndian.PutUint64(data[36:], 96)            // root header

	f, err := openHDF5(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(96), f.rootAddr)
}

func TestSuperblockV0RootAddress(t *testing.T) {
	data := make([]byte, 256)
	copy(data, hdf5Magic)
	// version 0, fixed 8-byte offsets and lengths
	data[13] = 8
	data[14] = 8
	// base, free-space, eof, driver-info at offset 24
	binary.LittleEndian.PutUint64(data[24:], 0)
	binary.LittleEndian.PutUint64(data[32:], undefinedAddr)
	binary.LittleEndian.PutUint64(data[40:], 256)
	binary.LittleEndian.PutUint64(data[48:], undefinedAddr)
	// root symbol table entry: link name offset, then header address
	binary.LittleEndian.PutUint64(data[56:], 0)
	binary.LittleEndian.PutUint64(data[64:], 200)

	f, err := openHDF5(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), f.rootAddr)
}

func TestSliceBounds(t *testing.T) {
	f := &hfile{data: make([]byte, 16)}
	_, err := f.slice(8, 8)
	assert.NoError(t, err)
	_, err = f.slice(8, 9)
	assert.True(t, errors.Is(err, ErrTruncated))
	_, err = f.slice(undefinedAddr, 1)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestUnshuffle(t *testing.T) {
	// Shuffled layout groups byte planes: all first bytes, then all
	// second bytes.
	shuffled := []byte{1, 2, 3, 10, 20, 30}
	out := unshuffle(shuffled, 2)
	assert.Equal(t, []byte{1, 10, 2, 20, 3, 30}, out)

	// Element size 1 is the identity.
	assert.Equal(t, []byte{5, 6}, unshuffle([]byte{5, 6}, 1))
}

func TestElementFloat64(t *testing.T) {
	le := binary.LittleEndian

	b := make([]byte, 2)
	le.PutUint16(b, uint16(0xFFF0))
	v, ok := elementFloat64(datatype{class: 0, size: 2, signed: true, little: true}, b, 0)
	require.True(t, ok)
	assert.Equal(t, float64(-16), v)

	b = make([]byte, 4)
	le.PutUint32(b, math.Float32bits(1.5))
	v, ok = elementFloat64(datatype{class: 1, size: 4, little: true}, b, 0)
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	be := make([]byte, 2)
	binary.BigEndian.PutUint16(be, 300)
	v, ok = elementFloat64(datatype{class: 0, size: 2, little: false}, be, 0)
	require.True(t, ok)
	assert.Equal(t, float64(300), v)

	// Out-of-range index.
	_, ok = elementFloat64(datatype{class: 0, size: 2, little: true}, b, 5)
	assert.False(t, ok)
}

func TestParseDataspace(t *testing.T) {
	// Version 2, rank 2, dims 10x20.
	body := []byte{2, 2, 0, 1}
	body = append(body, make([]byte, 16)...)
	binary.LittleEndian.PutUint64(body[4:], 10)
	binary.LittleEndian.PutUint64(body[12:], 20)
	dims, err := parseDataspace(body)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20}, dims)

	_, err = parseDataspace([]byte{7, 1})
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestParseDatatype(t *testing.T) {
	body := make([]byte, 8)
	body[0] = 0x10 | 1 // version 1, class 1 (float)
	binary.LittleEndian.PutUint32(body[4:], 4)
	dt, err := parseDatatype(body)
	require.NoError(t, err)
	assert.Equal(t, 1, dt.class)
	assert.Equal(t, 4, dt.size)
	assert.True(t, dt.little)

	body[0] = 0x10 | 9 // variable-length: unsupported
	_, err = parseDatatype(body)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestParseLayoutContiguous(t *testing.T) {
	body := make([]byte, 18)
	body[0] = 3 // layout version
	body[1] = 1 // contiguous
	binary.LittleEndian.PutUint64(body[2:], 4096)
	binary.LittleEndian.PutUint64(body[10:], 512)
	lo, err := parseLayout(body)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), lo.dataAddr)
	assert.Equal(t, uint64(512), lo.dataSize)
}

func TestParseLayoutChunked(t *testing.T) {
	body := make([]byte, 3+8+3*4)
	body[0] = 3
	body[1] = 2 // chunked
	body[2] = 3 // rank incl. element-size dimension
	binary.LittleEndian.PutUint64(body[3:], 8192)
	binary.LittleEndian.PutUint32(body[11:], 64)
	binary.LittleEndian.PutUint32(body[15:], 128)
	binary.LittleEndian.PutUint32(body[19:], 2)
	lo, err := parseLayout(body)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), lo.btreeAddr)
	assert.Equal(t, []uint64{64, 128, 2}, lo.chunkDims)
}

func TestPlaceChunkClipsAtEdge(t *testing.T) {
	f := &hfile{}
	obj := &object{
		dims:  []uint64{3, 3},
		dtype: datatype{class: 0, size: 1, little: true},
		layout: layout{
			class:     2,
			chunkDims: []uint64{2, 2, 1},
		},
	}
	// chunkDims carries the trailing element-size dim; placement uses
	// the dataset rank.
	obj.layout.chunkDims = obj.layout.chunkDims[:2]

	out := make([]byte, 9)
	f.placeChunk(obj, []byte{1, 2, 3, 4}, []uint64{2, 2}, out)
	// Only the in-bounds corner lands.
	assert.Equal(t, byte(1), out[8])
	assert.Equal(t, byte(0), out[7])
}
