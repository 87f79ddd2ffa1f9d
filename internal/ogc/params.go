// Package ogc parses and renders the WMS 1.3.0 / WMTS surfaces:
// request parameters in, capabilities and exception XML out.
package ogc

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meteotiles/internal/catalog"
	"meteotiles/internal/dispatch"
	"meteotiles/internal/proj"
)

// TileSize is the WMTS tile edge in pixels (WebMercatorQuad).
const TileSize = 256

// Pre-validation regexps filter malformed parameters before numeric
// parsing.
var (
	reCRS  = regexp.MustCompile(`^(?i)(?:[A-Z]+):(?:[0-9]+|84)$`)
	reBBox = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?(,[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?){3}$`)
	reInt  = regexp.MustCompile(`^[0-9]+$`)
	reTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?(Z|\.\d+Z)?$`)
	reDur  = regexp.MustCompile(`^PT(\d+)H$`)
)

func get(q url.Values, key string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return q.Get(strings.ToLower(key))
}

// ParseGetMap normalizes a WMS GetMap query into a dispatch request.
func ParseGetMap(q url.Values) (dispatch.Request, error) {
	layers := get(q, "LAYERS")
	if layers == "" {
		return dispatch.Request{}, dispatch.E(dispatch.KindLayerNotDefined, "LAYERS parameter missing")
	}
	if strings.Contains(layers, ",") {
		return dispatch.Request{}, dispatch.E(dispatch.KindLayerNotDefined, "exactly one layer per request")
	}
	style := get(q, "STYLES")

	if f := get(q, "FORMAT"); f != "" && f != "image/png" {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidFormat, "format %q not supported", f)
	}

	crsRaw := get(q, "CRS")
	if crsRaw == "" {
		// WMS 1.1.1 clients send SRS.
		crsRaw = get(q, "SRS")
	}
	if !reCRS.MatchString(crsRaw) {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidCRS, "malformed CRS %q", crsRaw)
	}

	w, err := parseDim(q, "WIDTH")
	if err != nil {
		return dispatch.Request{}, err
	}
	h, err := parseDim(q, "HEIGHT")
	if err != nil {
		return dispatch.Request{}, err
	}

	bboxRaw := get(q, "BBOX")
	if !reBBox.MatchString(bboxRaw) {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidBBox, "malformed BBOX %q", bboxRaw)
	}
	var b [4]float64
	for i, part := range strings.Split(bboxRaw, ",") {
		b[i], _ = strconv.ParseFloat(part, 64)
	}

	out, err := outputGrid(crsRaw, b, w, h)
	if err != nil {
		return dispatch.Request{}, err
	}

	sel, err := ParseTimeSelector(q)
	if err != nil {
		return dispatch.Request{}, err
	}

	return dispatch.Request{
		Layer: layers,
		Style: style,
		Time:  sel,
		Out:   out,
		CacheKey: fmt.Sprintf("wms/%s/%s/%s/%.6f,%.6f,%.6f,%.6f/%dx%d",
			layers, style, strings.ToUpper(crsRaw),
			out.MinX, out.MinY, out.MaxX, out.MaxY, w, h),
	}, nil
}

// outputGrid interprets the bbox under the declared CRS. WMS 1.3.0
// axis order for EPSG:4326 is lat,lon; CRS:84 keeps lon,lat. Requests
// that send lon,lat under EPSG:4326 are detected by their impossible
// latitudes and accepted the way every deployed client expects.
func outputGrid(crsRaw string, b [4]float64, w, h int) (proj.OutputGrid, error) {
	switch strings.ToUpper(crsRaw) {
	case "EPSG:4326":
		minLat, minLon, maxLat, maxLon := b[0], b[1], b[2], b[3]
		if minLat < -90 || maxLat > 90 {
			// Axes arrived lon,lat.
			minLon, minLat, maxLon, maxLat = b[0], b[1], b[2], b[3]
		}
		if minLat >= maxLat || minLon >= maxLon || minLat < -90 || maxLat > 90 {
			return proj.OutputGrid{}, dispatch.E(dispatch.KindInvalidBBox, "bbox %v out of range", b)
		}
		return proj.OutputGrid{W: w, H: h, CRS: proj.CRSGeographic,
			MinX: minLon, MinY: minLat, MaxX: maxLon, MaxY: maxLat}, nil
	case "CRS:84":
		if b[0] >= b[2] || b[1] >= b[3] || b[1] < -90 || b[3] > 90 {
			return proj.OutputGrid{}, dispatch.E(dispatch.KindInvalidBBox, "bbox %v out of range", b)
		}
		return proj.OutputGrid{W: w, H: h, CRS: proj.CRSGeographic,
			MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}, nil
	case "EPSG:3857":
		if b[0] >= b[2] || b[1] >= b[3] {
			return proj.OutputGrid{}, dispatch.E(dispatch.KindInvalidBBox, "bbox %v out of range", b)
		}
		return proj.OutputGrid{W: w, H: h, CRS: proj.CRSWebMercator,
			MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}, nil
	default:
		return proj.OutputGrid{}, dispatch.E(dispatch.KindInvalidCRS, "CRS %q not supported", crsRaw)
	}
}

func parseDim(q url.Values, key string) (int, error) {
	raw := get(q, key)
	if !reInt.MatchString(raw) {
		return 0, dispatch.E(dispatch.KindInvalidFormat, "%s %q", key, raw)
	}
	v, _ := strconv.Atoi(raw)
	return v, nil
}

// ParseTimeSelector reads the TIME dimension plus the RUN and
// FORECAST custom dimensions. All absent means "latest".
func ParseTimeSelector(q url.Values) (catalog.TimeSelector, error) {
	var sel catalog.TimeSelector

	if raw := firstOf(q, "TIME", "DIM_TIME"); raw != "" && !strings.EqualFold(raw, "current") {
		t, err := parseInstant(raw)
		if err != nil {
			return sel, dispatch.E(dispatch.KindInvalidFormat, "TIME %q", raw)
		}
		sel.ValidTime = &t
	}
	if raw := firstOf(q, "RUN", "DIM_RUN"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			return sel, dispatch.E(dispatch.KindInvalidFormat, "RUN %q", raw)
		}
		sel.ReferenceTime = &t
	}
	if raw := firstOf(q, "FORECAST", "DIM_FORECAST"); raw != "" {
		m := reDur.FindStringSubmatch(strings.ToUpper(raw))
		if m == nil {
			return sel, dispatch.E(dispatch.KindInvalidFormat, "FORECAST %q", raw)
		}
		hours, _ := strconv.Atoi(m[1])
		sel.ForecastHour = &hours
	}

	// RUN+FORECAST form a pair; RUN alone pins the run at lead zero.
	if sel.ReferenceTime != nil && sel.ForecastHour == nil {
		zero := 0
		sel.ForecastHour = &zero
	}
	if sel.ForecastHour != nil && sel.ReferenceTime == nil {
		return sel, dispatch.E(dispatch.KindInvalidFormat, "FORECAST requires RUN")
	}
	return sel, nil
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := get(q, k); v != "" {
			return v
		}
	}
	return ""
}

func parseInstant(raw string) (time.Time, error) {
	if !reTime.MatchString(raw) {
		return time.Time{}, fmt.Errorf("malformed instant %q", raw)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed instant %q", raw)
}

// ParseGetTileKVP normalizes a WMTS GetTile key-value query.
func ParseGetTileKVP(q url.Values) (dispatch.Request, error) {
	layer := get(q, "LAYER")
	if layer == "" {
		return dispatch.Request{}, dispatch.E(dispatch.KindLayerNotDefined, "LAYER parameter missing")
	}
	style := get(q, "STYLE")
	if tms := get(q, "TILEMATRIXSET"); tms != "" && tms != "WebMercatorQuad" {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidCRS, "tile matrix set %q not supported", tms)
	}
	if f := get(q, "FORMAT"); f != "" && f != "image/png" {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidFormat, "format %q not supported", f)
	}
	z, err := parseDim(q, "TILEMATRIX")
	if err != nil {
		return dispatch.Request{}, err
	}
	row, err := parseDim(q, "TILEROW")
	if err != nil {
		return dispatch.Request{}, err
	}
	col, err := parseDim(q, "TILECOL")
	if err != nil {
		return dispatch.Request{}, err
	}
	sel, err := ParseTimeSelector(q)
	if err != nil {
		return dispatch.Request{}, err
	}
	return TileRequest(layer, style, z, col, row, sel)
}

// TileRequest builds the dispatch request for XYZ tile (z,x,y): x is
// the column, y the row counted from the north edge.
func TileRequest(layer, style string, z, x, y int, sel catalog.TimeSelector) (dispatch.Request, error) {
	n := 1 << uint(z)
	if z < 0 || z > 22 || x < 0 || x >= n || y < 0 || y >= n {
		return dispatch.Request{}, dispatch.E(dispatch.KindInvalidBBox, "tile %d/%d/%d out of range", z, x, y)
	}
	return dispatch.Request{
		Layer:    layer,
		Style:    style,
		Time:     sel,
		Out:      proj.TileOutputGrid(z, x, y, TileSize),
		CacheKey: fmt.Sprintf("wmts/%s/%s/%d/%d/%d", layer, style, z, x, y),
	}, nil
}
