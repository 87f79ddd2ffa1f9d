package grib2

import "github.com/pkg/errors"

// Decode failure modes. Each maps to a distinct error kind so the
// dispatcher can translate them without string matching; decoders
// never panic on malformed input.
var (
	ErrTruncated             = errors.New("grib2: truncated input")
	ErrUnknownTemplate       = errors.New("grib2: unknown template")
	ErrUnsupportedProjection = errors.New("grib2: unsupported projection")
	ErrBitmapMismatch        = errors.New("grib2: bitmap length mismatch")
	ErrDecompression         = errors.New("grib2: decompression failed")
)
