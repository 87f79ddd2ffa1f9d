package grib2

import (
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
)

var registerGDAL sync.Once

// decodeJPEG2000 handles DRS template 5.40 by delegating the JPEG-2000
// codestream to GDAL. The payload is handed over through a scratch
// file because GDAL's JP2 drivers open named datasets; the decoded
// band is the packed integer stream.
func decodeJPEG2000(payload []byte, p drsParams) ([]uint32, error) {
	registerGDAL.Do(func() { godal.RegisterAll() })

	tmp, err := os.CreateTemp("", "grib2-*.j2k")
	if err != nil {
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}

	ds, err := godal.Open(tmp.Name())
	if err != nil {
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}
	defer ds.Close()

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, errors.Wrap(ErrDecompression, "JPEG-2000 codestream has no bands")
	}
	n := st.SizeX * st.SizeY
	if n < p.numPacked {
		return nil, errors.Wrapf(ErrDecompression, "JPEG-2000 carries %d samples, need %d", n, p.numPacked)
	}

	buf := make([]int32, n)
	if err := bands[0].Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
		return nil, errors.Wrap(ErrDecompression, err.Error())
	}

	raw := make([]uint32, p.numPacked)
	for i := range raw {
		raw[i] = uint32(buf[i])
	}
	return raw, nil
}
