package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecodedFieldValidatesLength(t *testing.T) {
	spec := GridSpec{Projection: Geographic, Nx: 3, Ny: 2}

	_, err := NewDecodedField(make([]float32, 5), spec, "K", false)
	assert.Error(t, err)

	f, err := NewDecodedField(make([]float32, 6), spec, "K", false)
	require.NoError(t, err)
	assert.Equal(t, "K", f.Units)
}

func TestValueRangeSkipsMissing(t *testing.T) {
	spec := GridSpec{Projection: Geographic, Nx: 2, Ny: 2}
	f, err := NewDecodedField([]float32{1, Missing(), 5, 3}, spec, "", true)
	require.NoError(t, err)
	assert.Equal(t, float32(1), f.MinValue)
	assert.Equal(t, float32(5), f.MaxValue)
}

func TestMissingSentinel(t *testing.T) {
	assert.True(t, IsMissing(Missing()))
	assert.False(t, IsMissing(0))
	assert.False(t, IsMissing(float32(math.Inf(1))))
}

func TestAtClampsEdges(t *testing.T) {
	spec := GridSpec{Projection: Geographic, Nx: 2, Ny: 2}
	f, err := NewDecodedField([]float32{1, 2, 3, 4}, spec, "", false)
	require.NoError(t, err)

	assert.Equal(t, float32(1), f.At(-5, -5))
	assert.Equal(t, float32(4), f.At(10, 10))
}

func TestAtWrappedWrapsColumns(t *testing.T) {
	spec := GridSpec{Projection: Geographic, Nx: 3, Ny: 1}
	f, err := NewDecodedField([]float32{10, 20, 30}, spec, "", false)
	require.NoError(t, err)

	assert.Equal(t, float32(10), f.AtWrapped(3, 0))
	assert.Equal(t, float32(30), f.AtWrapped(-1, 0))
}

func TestUnitConversions(t *testing.T) {
	assert.InDelta(t, 26.85, float64(Convert(300, "K", "C")), 1e-4)
	assert.InDelta(t, 1013.25, float64(Convert(101325, "Pa", "hPa")), 1e-4)
	assert.InDelta(t, 19.4384, MetersPerSecondToKnots(10), 1e-3)
	// Unknown conversions pass through.
	assert.Equal(t, float32(42), Convert(42, "dBZ", "C"))
}

func TestFieldKeyString(t *testing.T) {
	k := FieldKey{Model: "gfs", Parameter: "TMP", Level: "2m", TimeDiscriminant: "2026-01-01T00:00:00Z/f003"}
	k2 := FieldKey{Model: "gfs", Parameter: "TMP", Level: "2m", TimeDiscriminant: "2026-01-01T00:00:00Z/f003"}
	assert.Equal(t, k.String(), k2.String())
	assert.Equal(t, k, k2)
}
