package ogc

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteotiles/internal/dispatch"
	"meteotiles/internal/proj"
)

func getMapQuery() url.Values {
	return url.Values{
		"SERVICE": {"WMS"},
		"REQUEST": {"GetMap"},
		"LAYERS":  {"gfs_TMP"},
		"STYLES":  {"temperature"},
		"CRS":     {"EPSG:4326"},
		"BBOX":    {"-90,-180,90,180"},
		"WIDTH":   {"1440"},
		"HEIGHT":  {"720"},
		"FORMAT":  {"image/png"},
	}
}

func kindOf(t *testing.T, err error) dispatch.Kind {
	t.Helper()
	var de *dispatch.Error
	require.ErrorAs(t, err, &de)
	return de.Kind
}

func TestParseGetMap4326AxisOrder(t *testing.T) {
	req, err := ParseGetMap(getMapQuery())
	require.NoError(t, err)

	// WMS 1.3.0 lat,lon order: -90,-180,90,180 is the whole world.
	assert.Equal(t, proj.CRSGeographic, req.Out.CRS)
	assert.Equal(t, -180.0, req.Out.MinX)
	assert.Equal(t, -90.0, req.Out.MinY)
	assert.Equal(t, 180.0, req.Out.MaxX)
	assert.Equal(t, 90.0, req.Out.MaxY)
	assert.Equal(t, 1440, req.Out.W)
	assert.Equal(t, 720, req.Out.H)
}

func TestParseGetMap4326LonLatLeniency(t *testing.T) {
	q := getMapQuery()
	// lon,lat order betrays itself through latitudes beyond 90.
	q.Set("BBOX", "-180,-90,180,90")
	req, err := ParseGetMap(q)
	require.NoError(t, err)
	assert.Equal(t, -180.0, req.Out.MinX)
	assert.Equal(t, -90.0, req.Out.MinY)
}

func TestParseGetMapCRS84(t *testing.T) {
	q := getMapQuery()
	q.Set("CRS", "CRS:84")
	q.Set("BBOX", "-180,-90,180,90")
	req, err := ParseGetMap(q)
	require.NoError(t, err)
	assert.Equal(t, -180.0, req.Out.MinX)
	assert.Equal(t, 90.0, req.Out.MaxY)
}

func TestParseGetMapMercator(t *testing.T) {
	q := getMapQuery()
	q.Set("CRS", "EPSG:3857")
	q.Set("BBOX", "-20037508.34,-20037508.34,20037508.34,20037508.34")
	req, err := ParseGetMap(q)
	require.NoError(t, err)
	assert.Equal(t, proj.CRSWebMercator, req.Out.CRS)
	assert.InDelta(t, -20037508.34, req.Out.MinX, 1e-6)
}

func TestParseGetMapRejectsUnknownCRS(t *testing.T) {
	q := getMapQuery()
	q.Set("CRS", "EPSG:2154")
	_, err := ParseGetMap(q)
	assert.Equal(t, dispatch.KindInvalidCRS, kindOf(t, err))
}

func TestParseGetMapRejectsMalformedBBox(t *testing.T) {
	q := getMapQuery()
	q.Set("BBOX", "1,2,3")
	_, err := ParseGetMap(q)
	assert.Equal(t, dispatch.KindInvalidBBox, kindOf(t, err))

	q.Set("BBOX", "10,-180,-10,180") // min >= max
	_, err = ParseGetMap(q)
	assert.Equal(t, dispatch.KindInvalidBBox, kindOf(t, err))
}

func TestParseGetMapRejectsBadFormat(t *testing.T) {
	q := getMapQuery()
	q.Set("FORMAT", "image/jpeg")
	_, err := ParseGetMap(q)
	assert.Equal(t, dispatch.KindInvalidFormat, kindOf(t, err))
}

func TestParseGetMapMissingLayer(t *testing.T) {
	q := getMapQuery()
	q.Del("LAYERS")
	_, err := ParseGetMap(q)
	assert.Equal(t, dispatch.KindLayerNotDefined, kindOf(t, err))
}

func TestParseTimeSelectorForms(t *testing.T) {
	sel, err := ParseTimeSelector(url.Values{"TIME": {"2026-01-15T18:00:00Z"}})
	require.NoError(t, err)
	require.NotNil(t, sel.ValidTime)
	assert.Equal(t, 18, sel.ValidTime.Hour())
	assert.Nil(t, sel.ReferenceTime)

	sel, err = ParseTimeSelector(url.Values{
		"RUN":      {"2026-01-15T12:00:00Z"},
		"FORECAST": {"PT6H"},
	})
	require.NoError(t, err)
	require.NotNil(t, sel.ReferenceTime)
	require.NotNil(t, sel.ForecastHour)
	assert.Equal(t, 6, *sel.ForecastHour)

	// RUN alone pins lead zero.
	sel, err = ParseTimeSelector(url.Values{"DIM_RUN": {"2026-01-15T12:00:00Z"}})
	require.NoError(t, err)
	require.NotNil(t, sel.ForecastHour)
	assert.Equal(t, 0, *sel.ForecastHour)

	// Empty means latest.
	sel, err = ParseTimeSelector(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, sel.ValidTime)
	assert.Nil(t, sel.ReferenceTime)
}

func TestParseTimeSelectorErrors(t *testing.T) {
	_, err := ParseTimeSelector(url.Values{"TIME": {"yesterday"}})
	assert.Equal(t, dispatch.KindInvalidFormat, kindOf(t, err))

	_, err = ParseTimeSelector(url.Values{"FORECAST": {"PT6H"}})
	assert.Equal(t, dispatch.KindInvalidFormat, kindOf(t, err))

	_, err = ParseTimeSelector(url.Values{"RUN": {"2026-01-15T12:00:00Z"}, "FORECAST": {"6 hours"}})
	assert.Equal(t, dispatch.KindInvalidFormat, kindOf(t, err))
}

func TestParseGetTileKVP(t *testing.T) {
	req, err := ParseGetTileKVP(url.Values{
		"LAYER":         {"gfs_TMP"},
		"STYLE":         {"default"},
		"TILEMATRIXSET": {"WebMercatorQuad"},
		"TILEMATRIX":    {"3"},
		"TILEROW":       {"5"},
		"TILECOL":       {"2"},
		"FORMAT":        {"image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 256, req.Out.W)

	// Row 5 at z=3 is in the southern half: the tile's top edge sits
	// below the equator.
	lat, _ := req.Out.LatLon(128, 0)
	assert.Less(t, lat, 0.0)
	assert.Contains(t, req.CacheKey, "/3/2/5")
}

func TestTileRequestBounds(t *testing.T) {
	_, err := TileRequest("gfs_TMP", "default", 3, 8, 0, catalogSelector())
	assert.Equal(t, dispatch.KindInvalidBBox, kindOf(t, err))

	_, err = TileRequest("gfs_TMP", "default", -1, 0, 0, catalogSelector())
	assert.Equal(t, dispatch.KindInvalidBBox, kindOf(t, err))
}

func TestExceptionMapping(t *testing.T) {
	status, retry, body := ExceptionFor(dispatch.E(dispatch.KindLayerNotDefined, "no such layer"))
	assert.Equal(t, 400, status)
	assert.Zero(t, retry)
	assert.Contains(t, string(body), `code="LayerNotDefined"`)
	assert.Contains(t, string(body), "ServiceExceptionReport")

	status, retry, body = ExceptionFor(dispatch.E(dispatch.KindOverloaded, "queue full"))
	assert.Equal(t, 503, status)
	assert.NotZero(t, retry)
	_ = body
}

func TestCapabilitiesDocument(t *testing.T) {
	body, err := Capabilities(testRegistry())
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, `version="1.3.0"`)
	assert.Contains(t, s, "gfs_TMP")
	assert.Contains(t, s, "gfs_WIND_BARBS")
	assert.Contains(t, s, "EPSG:3857")
	// FORECAST dimension in ISO-8601 duration form.
	assert.Contains(t, s, "PT0H,PT3H")
	assert.Contains(t, s, `name="time"`)
}
