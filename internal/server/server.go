// Package server exposes the OGC HTTP surface over the dispatcher.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"meteotiles/internal/dispatch"
	"meteotiles/internal/fieldcache"
	"meteotiles/internal/metrics"
	"meteotiles/internal/ogc"
	"meteotiles/internal/registry"
	"meteotiles/internal/tilecache"
)

// Handler serves the WMS and WMTS endpoints.
type Handler struct {
	disp           *dispatch.Dispatcher
	reg            *registry.Registry
	fields         *fieldcache.Cache
	tiles          *tilecache.Cache
	met            *metrics.Registry
	requestTimeout time.Duration
}

func New(disp *dispatch.Dispatcher, reg *registry.Registry, fields *fieldcache.Cache,
	tiles *tilecache.Cache, met *metrics.Registry, requestTimeout time.Duration) *Handler {
	return &Handler{
		disp:           disp,
		reg:            reg,
		fields:         fields,
		tiles:          tiles,
		met:            met,
		requestTimeout: requestTimeout,
	}
}

// Register wires the routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/wms", h.WMS)
	e.GET("/wmts", h.WMTSKVP)
	e.GET("/wmts/:layer/:style/:tms/:z/:x/:y", h.WMTSRest)
	e.GET("/health", h.Health)
}

// WMS handles GetCapabilities and GetMap.
func (h *Handler) WMS(c echo.Context) error {
	q := c.Request().URL.Query()
	request := q.Get("REQUEST")
	if request == "" {
		request = q.Get("request")
	}
	switch request {
	case "GetCapabilities":
		body, err := ogc.Capabilities(h.reg)
		if err != nil {
			return h.exception(c, err)
		}
		return c.Blob(http.StatusOK, "text/xml", body)
	case "GetMap":
		req, err := ogc.ParseGetMap(q)
		if err != nil {
			return h.exception(c, err)
		}
		return h.serve(c, req)
	default:
		return h.exception(c, dispatch.E(dispatch.KindInvalidFormat, "REQUEST %q not supported", request))
	}
}

// WMTSKVP handles WMTS GetTile in key-value form.
func (h *Handler) WMTSKVP(c echo.Context) error {
	q := c.Request().URL.Query()
	req, err := ogc.ParseGetTileKVP(q)
	if err != nil {
		return h.exception(c, err)
	}
	return h.serve(c, req)
}

// WMTSRest handles the REST form. The path carries z/x/y in XYZ
// order: the x segment is the column, the y segment the row. The y
// parameter may carry a ".png" suffix which is stripped automatically.
func (h *Handler) WMTSRest(c echo.Context) error {
	if tms := c.Param("tms"); tms != "WebMercatorQuad" {
		return h.exception(c, dispatch.E(dispatch.KindInvalidCRS, "tile matrix set %q not supported", tms))
	}
	z, err := strconv.Atoi(c.Param("z"))
	if err != nil {
		return h.exception(c, dispatch.E(dispatch.KindInvalidBBox, "tile matrix %q", c.Param("z")))
	}
	x, err := strconv.Atoi(c.Param("x"))
	if err != nil {
		return h.exception(c, dispatch.E(dispatch.KindInvalidBBox, "tile column %q", c.Param("x")))
	}
	yRaw := strings.TrimSuffix(c.Param("y"), ".png")
	y, err := strconv.Atoi(yRaw)
	if err != nil {
		return h.exception(c, dispatch.E(dispatch.KindInvalidBBox, "tile row %q", yRaw))
	}

	sel, err := ogc.ParseTimeSelector(c.Request().URL.Query())
	if err != nil {
		return h.exception(c, err)
	}
	req, err := ogc.TileRequest(c.Param("layer"), c.Param("style"), z, x, y, sel)
	if err != nil {
		return h.exception(c, err)
	}
	return h.serve(c, req)
}

func (h *Handler) serve(c echo.Context, req dispatch.Request) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.requestTimeout)
	defer cancel()

	res, err := h.disp.Render(ctx, req)
	if err != nil {
		return h.exception(c, err)
	}
	if res.CacheHit {
		c.Response().Header().Set("X-Cache", "HIT")
	} else {
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return c.Blob(http.StatusOK, "image/png", res.PNG)
}

func (h *Handler) exception(c echo.Context, err error) error {
	status, retryAfter, body := ogc.ExceptionFor(err)
	if retryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	return c.Blob(status, "text/xml", body)
}

// Health reports liveness plus cache statistics.
func (h *Handler) Health(c echo.Context) error {
	entries, bytes := h.fields.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"status":             "ok",
		"field_cache":        map[string]any{"entries": entries, "bytes": bytes},
		"tile_cache_entries": h.tiles.Len(),
		"counters":           h.met.Snapshot(),
		"time":               time.Now().UTC().Format(time.RFC3339),
	})
}
