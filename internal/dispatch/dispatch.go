// Package dispatch owns the request-to-pixel path: registry
// validation, cache probes, field loading, resampling, styling and
// encoding. It is the only layer that classifies pipeline errors.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"meteotiles/internal/catalog"
	"meteotiles/internal/fieldcache"
	"meteotiles/internal/grid"
	"meteotiles/internal/metrics"
	"meteotiles/internal/objstore"
	"meteotiles/internal/proj"
	"meteotiles/internal/registry"
	"meteotiles/internal/render"
	"meteotiles/internal/tilecache"
)

// Request is one normalized tile or map render.
type Request struct {
	Layer string
	Style string
	Time  catalog.TimeSelector
	Out   proj.OutputGrid

	// CacheKey is the canonical identity of the output window:
	// TileKey string for WMTS, window signature for GetMap. The time
	// discriminant is appended after catalog resolution.
	CacheKey string
}

// Result is the encoded tile plus the cache-hit indicator used by
// metrics and load-test assertions.
type Result struct {
	PNG      []byte
	CacheHit bool
}

// Dispatcher wires the pipeline together.
type Dispatcher struct {
	reg    *registry.Registry
	cat    catalog.Catalog
	store  objstore.Store
	fields *fieldcache.Cache
	tiles  *tilecache.Cache
	met    *metrics.Registry
	render *gate
}

// NewDispatcher builds the pipeline. maxRenders bounds concurrent
// CPU-heavy renders; queueDepth bounds admission beyond that before
// requests are rejected as overloaded.
func NewDispatcher(reg *registry.Registry, cat catalog.Catalog, store objstore.Store,
	fields *fieldcache.Cache, tiles *tilecache.Cache, met *metrics.Registry,
	maxRenders, queueDepth int) *Dispatcher {
	return &Dispatcher{
		reg:    reg,
		cat:    cat,
		store:  store,
		fields: fields,
		tiles:  tiles,
		met:    met,
		render: newGate(maxRenders, queueDepth),
	}
}

// Render produces the PNG for a request. Output bytes are a pure
// function of the request and the cached sources; that determinism is
// what makes the tile cache valid.
func (d *Dispatcher) Render(ctx context.Context, req Request) (Result, error) {
	layer, ok := d.reg.Layer(req.Layer)
	if !ok {
		return Result{}, E(KindLayerNotDefined, "layer %q is not defined", req.Layer)
	}
	style, ok := d.reg.Style(layer, req.Style)
	if !ok {
		return Result{}, E(KindStyleNotDefined, "style %q is not defined for layer %q", req.Style, req.Layer)
	}
	if req.Out.W <= 0 || req.Out.H <= 0 || req.Out.W > 4096 || req.Out.H > 4096 {
		return Result{}, E(KindInvalidFormat, "output size %dx%d", req.Out.W, req.Out.H)
	}
	if style.Composite() != (len(layer.Fields) == 2) {
		return Result{}, E(KindStyleNotDefined, "style %q arity does not match layer %q", style.Name, req.Layer)
	}

	// Resolve the catalog products first: the tile key's time
	// discriminant must name the concrete product, or "latest"
	// requests would pin stale tiles forever.
	products := make([]*catalog.SourceProduct, len(layer.Fields))
	for i, fs := range layer.Fields {
		p, err := d.cat.Find(ctx, layer.Model, fs.Parameter, fs.Level, req.Time)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Result{}, Wrap(KindSourceUnavailable, err, "no source for %s/%s", layer.Model, fs.Parameter)
			}
			return Result{}, Wrap(KindSourceUnavailable, err, "catalog lookup failed")
		}
		products[i] = p
	}
	disc := discriminant(layer, products[0])
	cacheKey := req.CacheKey + "|" + disc

	if png, ok := d.tiles.Get(ctx, cacheKey); ok {
		return Result{PNG: png, CacheHit: true}, nil
	}

	// Field loads: coalesced per key; composite fields load
	// concurrently and join before resampling begins.
	fields := make([]*grid.DecodedField, len(layer.Fields))
	g, gctx := errgroup.WithContext(ctx)
	for i := range layer.Fields {
		g.Go(func() error {
			fs := layer.Fields[i]
			product := products[i]
			key := grid.FieldKey{
				Model:            layer.Model,
				Parameter:        fs.Parameter,
				Level:            fs.Level,
				TimeDiscriminant: disc,
			}
			f, err := d.fields.GetOrLoad(gctx, key, func(loadCtx context.Context) (*grid.DecodedField, error) {
				return d.loadField(loadCtx, fs, product)
			})
			if err != nil {
				return err
			}
			fields[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, classifyLoadErr(err)
	}

	// CPU-heavy stage behind the render gate.
	if err := d.render.acquire(ctx); err != nil {
		var de *Error
		if errors.As(err, &de) && de.Kind == KindOverloaded {
			d.met.OverloadRejects.Inc()
		}
		return Result{}, err
	}
	defer d.render.release()

	raster, err := d.rasterize(style, layer, fields, req.Out)
	if err != nil {
		return Result{}, err
	}
	png, err := render.EncodePNG(raster)
	if err != nil {
		return Result{}, Wrap(KindDecodeFailed, err, "png encode")
	}
	d.met.RendersDone.Inc()

	// Cache writes proceed even when the client has gone away: the
	// tile is valuable to the next request.
	d.tiles.Set(context.WithoutCancel(ctx), cacheKey, png, layer.TTL)
	return Result{PNG: png}, nil
}

// rasterize builds the projection LUT once, resamples every channel
// through it and applies the style.
func (d *Dispatcher) rasterize(style render.Style, layer registry.Layer, fields []*grid.DecodedField, out proj.OutputGrid) (*render.Raster, error) {
	lut := proj.BuildLUT(out, fields[0].Spec)
	buffers := make([][]float32, len(fields))
	for i, f := range fields {
		if i > 0 && f.Spec != fields[0].Spec {
			// Composite channels on differing grids need their own LUT.
			buffers[i] = proj.Resample(f, proj.BuildLUT(out, f.Spec))
			continue
		}
		buffers[i] = proj.Resample(f, lut)
	}

	units := layer.Fields[0].Units

	switch {
	case style.Gradient != nil:
		return render.RenderGradient(style.Gradient, buffers[0], out.W, out.H, units), nil
	case style.Isolines != nil:
		return render.RenderIsolines(style.Isolines, buffers[0], out.W, out.H, units), nil
	case style.WindBarbs != nil:
		if len(buffers) != 2 {
			return nil, E(KindStyleNotDefined, "wind barbs need U and V fields")
		}
		return render.RenderWindBarbs(style.WindBarbs, buffers[0], buffers[1], out.W, out.H), nil
	case style.Grayscale != nil:
		return render.RenderGrayscale(style.Grayscale, buffers[0], out.W, out.H), nil
	case style.EnhancedIR != nil:
		return render.RenderEnhancedIR(style.EnhancedIR, buffers[0], out.W, out.H), nil
	default:
		return nil, E(KindStyleNotDefined, "style %q has no renderer", style.Name)
	}
}

// loadField fetches and decodes one product on a field-cache miss.
func (d *Dispatcher) loadField(ctx context.Context, fs registry.FieldSpec, product *catalog.SourceProduct) (*grid.DecodedField, error) {
	start := time.Now()
	data, err := d.store.Get(ctx, product.StoragePath)
	if err != nil {
		return nil, err
	}

	var field *grid.DecodedField
	switch product.DataFormat {
	case "grib2":
		field, err = decodeGRIB2Field(data, fs)
	case "netcdf":
		field, err = decodeNetCDFField(data, fs)
	default:
		err = fmt.Errorf("unknown data format %q", product.DataFormat)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("decoded source field",
		"path", product.StoragePath,
		"format", product.DataFormat,
		"grid", fmt.Sprintf("%dx%d", field.Spec.Nx, field.Spec.Ny),
		"elapsed", time.Since(start),
	)
	return field, nil
}

// discriminant builds the time component of cache keys: empty for
// static layers, the valid-time instant for observations, run plus
// forecast hour for forecasts.
func discriminant(layer registry.Layer, p *catalog.SourceProduct) string {
	switch layer.Kind {
	case registry.Static:
		return ""
	case registry.Observation:
		return p.ValidTime.UTC().Format(time.RFC3339)
	default:
		fh := int(p.ValidTime.Sub(p.ReferenceTime).Hours())
		return fmt.Sprintf("%s/f%03d", p.ReferenceTime.UTC().Format(time.RFC3339), fh)
	}
}

func classifyLoadErr(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, objstore.ErrNotFound), errors.Is(err, objstore.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(KindSourceUnavailable, err, "source fetch failed")
	default:
		return Wrap(KindDecodeFailed, err, "source decode failed")
	}
}
