package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Encoding then decoding through the stdlib decoder yields the exact
// RGBA buffer that was encoded.
func TestEncodePNGRoundTrip(t *testing.T) {
	r := NewRaster(16, 8)
	r.Set(0, 0, color.RGBA{255, 0, 0, 255})
	r.Set(15, 7, color.RGBA{0, 255, 0, 255})
	r.Set(7, 3, color.RGBA{1, 2, 3, 255})

	data, err := EncodePNG(r)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 16, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())

	decoded := image.NewRGBA(img.Bounds())
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			decoded.Set(x, y, img.At(x, y))
		}
	}
	assert.Equal(t, r.Pix, decoded.Pix)
}

func TestEncodePNGDeterministic(t *testing.T) {
	r := NewRaster(32, 32)
	for i := range r.Pix {
		r.Pix[i] = uint8(i * 7)
	}
	a, err := EncodePNG(r)
	require.NoError(t, err)
	b, err := EncodePNG(r)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLineEndpointsPainted(t *testing.T) {
	r := NewRaster(10, 10)
	c := color.RGBA{9, 9, 9, 255}
	r.Line(1, 1, 8, 6, 1, c)
	assert.Equal(t, uint8(255), r.Pix[(1*10+1)*4+3])
	assert.Equal(t, uint8(255), r.Pix[(6*10+8)*4+3])
}

func TestSetOutOfBoundsIgnored(t *testing.T) {
	r := NewRaster(4, 4)
	r.Set(-1, 0, color.RGBA{1, 1, 1, 255})
	r.Set(0, 4, color.RGBA{1, 1, 1, 255})
	for _, p := range r.Pix {
		assert.Equal(t, uint8(0), p)
	}
}

func TestFillTriangleCoversCentroid(t *testing.T) {
	r := NewRaster(12, 12)
	r.FillTriangle(1, 1, 10, 1, 5, 9, color.RGBA{5, 5, 5, 255})
	assert.Equal(t, uint8(255), r.Pix[(3*12+5)*4+3])
}
