package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteotiles/internal/registry"
)

func TestLevelMatches(t *testing.T) {
	assert.True(t, levelMatches("", 103, 2))
	assert.True(t, levelMatches("2m", 103, 2))
	assert.False(t, levelMatches("2m", 103, 10))
	assert.True(t, levelMatches("10m", 103, 10))
	assert.True(t, levelMatches("msl", 101, 0))
	assert.True(t, levelMatches("surface", 1, 0))
	assert.True(t, levelMatches("entire", 200, 0))
	assert.True(t, levelMatches("500hPa", 100, 50000))
	assert.False(t, levelMatches("500hPa", 100, 85000))
	assert.False(t, levelMatches("mystery", 1, 0))
}

// The loader picks the right message out of a multi-message file.
func TestDecodeGRIB2FieldSelectsMessage(t *testing.T) {
	file := buildGRIB2(
		gribField{category: 0, number: 0, levelType: 103, levelValue: 2, ref: 250,
			raw: func(lat, lon float64) int { return 1 }},
		gribField{category: 2, number: 2, levelType: 103, levelValue: 10, ref: 0,
			raw: func(lat, lon float64) int { return 7 }},
	)

	f, err := decodeGRIB2Field(file, registry.FieldSpec{
		Parameter: "UGRD", Level: "10m", Units: "m/s", GRIBCategory: 2, GRIBNumber: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "m/s", f.Units)
	assert.InDelta(t, 7, float64(f.Values[0]), 1e-4)
}

func TestDecodeGRIB2FieldNoMatch(t *testing.T) {
	file := buildGRIB2(gribField{category: 0, number: 0, levelType: 103, levelValue: 2, ref: 250,
		raw: func(lat, lon float64) int { return 1 }})

	_, err := decodeGRIB2Field(file, registry.FieldSpec{
		Parameter: "REFC", GRIBCategory: 16, GRIBNumber: 196, Level: "entire",
	})
	assert.Error(t, err)
}
