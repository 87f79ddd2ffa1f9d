// Package registry holds the immutable layer, parameter and style
// registries the dispatcher validates requests against. The built-in
// set covers the operational models; viper config can adjust cache
// TTLs per layer family.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"meteotiles/internal/render"
)

// LayerKind drives the shape of the time discriminant.
type LayerKind int

const (
	Static LayerKind = iota
	Observation
	Forecast
)

// FieldSpec names one source field a layer consumes and how to find
// it inside a decoded product.
type FieldSpec struct {
	Parameter string
	Level     string
	Units     string

	// GRIB2 message selection.
	GRIBCategory byte
	GRIBNumber   byte

	// NetCDF variable name (GOES).
	NetCDFVar string
}

// Layer is one requestable map layer. Composite layers list more than
// one field; the dispatcher is generic over the arity.
type Layer struct {
	Name         string
	Model        string
	Format       string // "grib2" or "netcdf"
	Kind         LayerKind
	Fields       []FieldSpec
	DefaultStyle string
	Styles       []string
	TTL          time.Duration
}

// Registry is the validated lookup surface.
type Registry struct {
	layers map[string]Layer
	styles map[string]render.Style
}

// Layer resolves a layer by its public name.
func (r *Registry) Layer(name string) (Layer, bool) {
	l, ok := r.layers[name]
	return l, ok
}

// Layers lists all layers in stable order for capabilities documents.
func (r *Registry) Layers() []Layer {
	names := make([]string, 0, len(r.layers))
	for n := range r.layers {
		names = append(names, n)
	}
	// Stable enumeration keeps capabilities output deterministic.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	out := make([]Layer, len(names))
	for i, n := range names {
		out[i] = r.layers[n]
	}
	return out
}

// Style resolves a style for a layer. The empty name and "default"
// select the layer's default style.
func (r *Registry) Style(layer Layer, name string) (render.Style, bool) {
	if name == "" || name == "default" {
		name = layer.DefaultStyle
	}
	allowed := false
	for _, s := range layer.Styles {
		if s == name {
			allowed = true
			break
		}
	}
	if !allowed {
		return render.Style{}, false
	}
	s, ok := r.styles[name]
	return s, ok
}

// LayerName builds the public name for a scalar layer:
// {model}_{parameter} or {model}_{parameter}:{level} when the
// parameter exposes multiple levels.
func LayerName(model, parameter, level string, multiLevel bool) string {
	if multiLevel && level != "" {
		return fmt.Sprintf("%s_%s:%s", model, parameter, level)
	}
	return fmt.Sprintf("%s_%s", model, parameter)
}

// Load builds the registry: the built-in operational set with TTL
// overrides from configuration keys of the form
// layer_ttl.<layer-family> (seconds).
func Load(v *viper.Viper) *Registry {
	r := builtin()
	if v == nil {
		return r
	}
	for name, layer := range r.layers {
		family := strings.SplitN(name, "_", 2)[0]
		if secs := v.GetInt("layer_ttl." + family); secs > 0 {
			layer.TTL = time.Duration(secs) * time.Second
			r.layers[name] = layer
		}
	}
	return r
}

func builtin() *Registry {
	r := &Registry{
		layers: map[string]Layer{},
		styles: builtinStyles(),
	}

	add := func(l Layer) { r.layers[l.Name] = l }

	// GFS: global 0.25-degree forecast fields.
	add(Layer{
		Name: "gfs_TMP", Model: "gfs", Format: "grib2", Kind: Forecast,
		Fields:       []FieldSpec{{Parameter: "TMP", Level: "2m", Units: "K", GRIBCategory: 0, GRIBNumber: 0}},
		DefaultStyle: "temperature", Styles: []string{"temperature", "temperature_isolines"},
		TTL: time.Hour,
	})
	add(Layer{
		Name: "gfs_PRMSL", Model: "gfs", Format: "grib2", Kind: Forecast,
		Fields:       []FieldSpec{{Parameter: "PRMSL", Level: "msl", Units: "Pa", GRIBCategory: 3, GRIBNumber: 1}},
		DefaultStyle: "isobars", Styles: []string{"isobars"},
		TTL: time.Hour,
	})
	add(Layer{
		Name: "gfs_WIND_BARBS", Model: "gfs", Format: "grib2", Kind: Forecast,
		Fields: []FieldSpec{
			{Parameter: "UGRD", Level: "10m", Units: "m/s", GRIBCategory: 2, GRIBNumber: 2},
			{Parameter: "VGRD", Level: "10m", Units: "m/s", GRIBCategory: 2, GRIBNumber: 3},
		},
		DefaultStyle: "wind_barbs", Styles: []string{"wind_barbs"},
		TTL: time.Hour,
	})

	// HRRR: CONUS Lambert conformal forecast fields.
	add(Layer{
		Name: "hrrr_TMP", Model: "hrrr", Format: "grib2", Kind: Forecast,
		Fields:       []FieldSpec{{Parameter: "TMP", Level: "2m", Units: "K", GRIBCategory: 0, GRIBNumber: 0}},
		DefaultStyle: "temperature", Styles: []string{"temperature", "temperature_isolines"},
		TTL: 30 * time.Minute,
	})
	add(Layer{
		Name: "hrrr_REFC", Model: "hrrr", Format: "grib2", Kind: Forecast,
		Fields:       []FieldSpec{{Parameter: "REFC", Level: "entire", Units: "dBZ", GRIBCategory: 16, GRIBNumber: 196}},
		DefaultStyle: "reflectivity", Styles: []string{"reflectivity"},
		TTL: 30 * time.Minute,
	})

	// MRMS: radar mosaic observations on a geographic grid.
	add(Layer{
		Name: "mrms_REFL", Model: "mrms", Format: "grib2", Kind: Observation,
		Fields:       []FieldSpec{{Parameter: "REFL", Level: "", Units: "dBZ", GRIBCategory: 16, GRIBNumber: 195}},
		DefaultStyle: "reflectivity", Styles: []string{"reflectivity"},
		TTL: 5 * time.Minute,
	})

	// GOES: geostationary imagery.
	add(Layer{
		Name: "goes_CMI_VIS", Model: "goes", Format: "netcdf", Kind: Observation,
		Fields:       []FieldSpec{{Parameter: "CMI_VIS", Level: "", Units: "", NetCDFVar: "CMI"}},
		DefaultStyle: "visible", Styles: []string{"visible"},
		TTL: 10 * time.Minute,
	})
	add(Layer{
		Name: "goes_CMI_IR", Model: "goes", Format: "netcdf", Kind: Observation,
		Fields:       []FieldSpec{{Parameter: "CMI_IR", Level: "", Units: "K", NetCDFVar: "CMI"}},
		DefaultStyle: "enhanced_ir", Styles: []string{"enhanced_ir", "visible"},
		TTL: 10 * time.Minute,
	})

	return r
}
