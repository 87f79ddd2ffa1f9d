package netcdf

import (
	"github.com/pkg/errors"

	"meteotiles/internal/grid"
)

// DecodeGOES reads a GOES ABI L2 product (CMI or Rad) into a decoded
// field carrying the geostationary projection parameters the
// resampler needs.
func DecodeGOES(data []byte, varName string) (*grid.DecodedField, error) {
	f, err := Open(data)
	if err != nil {
		return nil, err
	}

	v, err := f.Variable(varName)
	if err != nil {
		return nil, err
	}
	if len(v.Dims) != 2 {
		return nil, errors.Wrapf(ErrUnsupported, "variable %q has rank %d", varName, len(v.Dims))
	}
	ny, nx := v.Dims[0], v.Dims[1]

	projVar, err := f.Variable("goes_imager_projection")
	if err != nil {
		return nil, err
	}
	xVar, err := f.Variable("x")
	if err != nil {
		return nil, err
	}
	yVar, err := f.Variable("y")
	if err != nil {
		return nil, err
	}

	spec := grid.GridSpec{
		Projection:    grid.Geostationary,
		Nx:            nx,
		Ny:            ny,
		LonConvention: grid.LonSigned,
		Geo: grid.GeostationaryParams{
			PerspectiveHeight: projVar.AttrFloat("perspective_point_height", 35786023),
			LonOrigin:         projVar.AttrFloat("longitude_of_projection_origin", 0),
			SweepAxis:         projVar.AttrString("sweep_angle_axis"),
			SemiMajor:         projVar.AttrFloat("semi_major_axis", 6378137),
			SemiMinor:         projVar.AttrFloat("semi_minor_axis", 6356752.31414),
			XScale:            xVar.AttrFloat("scale_factor", 1),
			XOffset:           xVar.AttrFloat("add_offset", 0),
			YScale:            yVar.AttrFloat("scale_factor", 1),
			YOffset:           yVar.AttrFloat("add_offset", 0),
		},
	}

	raw, err := v.Float64s()
	if err != nil {
		return nil, err
	}

	scale := v.AttrFloat("scale_factor", 1)
	offset := v.AttrFloat("add_offset", 0)
	hasFill := v.HasAttr("_FillValue")
	fill := v.AttrFloat("_FillValue", 0)

	values := make([]float32, len(raw))
	for i, r := range raw {
		if hasFill && r == fill {
			values[i] = grid.Missing()
			continue
		}
		values[i] = float32(r*scale + offset)
	}

	return grid.NewDecodedField(values, spec, v.AttrString("units"), hasFill)
}
