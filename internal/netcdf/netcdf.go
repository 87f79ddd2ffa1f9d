package netcdf

import (
	"bytes"

	"github.com/pkg/errors"
)

// File is an opened NetCDF-4 dataset backed by an in-memory byte
// slice. Variables and attributes are resolved lazily against the
// root group.
type File struct {
	h       *hfile
	members map[string]uint64
	cache   map[string]*Variable
}

// Variable is one named dataset plus its attributes.
type Variable struct {
	h    *hfile
	obj  *object
	Dims []int
}

// Open parses the superblock and the root group of an HDF5-backed
// NetCDF file held in memory.
func Open(data []byte) (*File, error) {
	h, err := openHDF5(data)
	if err != nil {
		return nil, err
	}
	root, err := h.readObject(h.rootAddr)
	if err != nil {
		return nil, err
	}
	members, err := h.children(root)
	if err != nil {
		return nil, err
	}
	return &File{h: h, members: members, cache: map[string]*Variable{}}, nil
}

// Variable resolves a root-group dataset by name.
func (f *File) Variable(name string) (*Variable, error) {
	if v, ok := f.cache[name]; ok {
		return v, nil
	}
	addr, ok := f.members[name]
	if !ok {
		return nil, errors.Wrapf(ErrTruncated, "no variable %q", name)
	}
	obj, err := f.h.readObject(addr)
	if err != nil {
		return nil, err
	}
	v := &Variable{h: f.h, obj: obj}
	for _, d := range obj.dims {
		v.Dims = append(v.Dims, int(d))
	}
	f.cache[name] = v
	return v, nil
}

// Has reports whether the root group contains the named member.
func (f *File) Has(name string) bool {
	_, ok := f.members[name]
	return ok
}

// AttrFloat returns a scalar numeric attribute, or the fallback when
// absent.
func (v *Variable) AttrFloat(name string, fallback float64) float64 {
	a, ok := v.obj.attrs[name]
	if !ok {
		return fallback
	}
	val, ok := elementFloat64(a.dtype, a.raw, 0)
	if !ok {
		return fallback
	}
	return val
}

// HasAttr reports whether the attribute exists.
func (v *Variable) HasAttr(name string) bool {
	_, ok := v.obj.attrs[name]
	return ok
}

// AttrString returns a string attribute, or "" when absent.
func (v *Variable) AttrString(name string) string {
	a, ok := v.obj.attrs[name]
	if !ok || a.dtype.class != 3 {
		return ""
	}
	n := a.dtype.size
	if n > len(a.raw) {
		n = len(a.raw)
	}
	return string(bytes.TrimRight(a.raw[:n], "\x00"))
}

// Float64s reads the whole dataset as float64s in row-major order,
// without scale/offset applied.
func (v *Variable) Float64s() ([]float64, error) {
	raw, err := v.h.readDataset(v.obj)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, d := range v.Dims {
		n *= d
	}
	out := make([]float64, n)
	for i := range out {
		val, ok := elementFloat64(v.obj.dtype, raw, i)
		if !ok {
			return nil, errors.Wrap(ErrTruncated, "dataset shorter than its dataspace")
		}
		out[i] = val
	}
	return out, nil
}
