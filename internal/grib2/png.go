package grib2

import (
	"bytes"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

// decodePNGPacked handles DRS template 5.41: the packed integer stream
// is stored as a PNG image. The stdlib decoder yields the pixels; the
// reference/scale arithmetic is applied by the caller afterwards.
func decodePNGPacked(payload []byte, p drsParams) ([]uint32, error) {
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}

	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n < p.numPacked {
		return nil, errors.Wrapf(ErrDecompression, "PNG carries %d samples, need %d", n, p.numPacked)
	}

	raw := make([]uint32, 0, n)
	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := im.Pix[(y-b.Min.Y)*im.Stride:]
			for x := 0; x < b.Dx(); x++ {
				raw = append(raw, uint32(row[x]))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := im.Pix[(y-b.Min.Y)*im.Stride:]
			for x := 0; x < b.Dx(); x++ {
				raw = append(raw, uint32(row[2*x])<<8|uint32(row[2*x+1]))
			}
		}
	default:
		return nil, errors.Wrapf(ErrDecompression, "PNG color model %T for %d-bit packing", img, p.nbits)
	}
	return raw[:p.numPacked], nil
}
