package render

import (
	"bytes"
	"image/png"
)

// BestSpeed trades a few percent of size for throughput on the render
// hot path.
var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG serializes the raster as RGBA PNG bytes.
func EncodePNG(r *Raster) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(r.W * r.H / 2)
	if err := encoder.Encode(&buf, r.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
