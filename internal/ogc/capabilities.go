package ogc

import (
	"encoding/xml"
	"fmt"
	"strings"

	"meteotiles/internal/registry"
)

// WMS 1.3.0 capabilities document structures.
type WMSCapabilities struct {
	XMLName    xml.Name   `xml:"WMS_Capabilities"`
	Version    string     `xml:"version,attr"`
	Xmlns      string     `xml:"xmlns,attr"`
	Service    Service    `xml:"Service"`
	Capability Capability `xml:"Capability"`
}

type Service struct {
	Name     string `xml:"Name"`
	Title    string `xml:"Title"`
	Abstract string `xml:"Abstract"`
}

type Capability struct {
	Request CapRequest `xml:"Request"`
	Layer   RootLayer  `xml:"Layer"`
}

type CapRequest struct {
	GetCapabilities Operation `xml:"GetCapabilities"`
	GetMap          Operation `xml:"GetMap"`
}

type Operation struct {
	Formats []string `xml:"Format"`
}

type RootLayer struct {
	Title  string     `xml:"Title"`
	CRS    []string   `xml:"CRS"`
	Layers []CapLayer `xml:"Layer"`
}

type CapLayer struct {
	Queryable  int         `xml:"queryable,attr"`
	Name       string      `xml:"Name"`
	Title      string      `xml:"Title"`
	Styles     []CapStyle  `xml:"Style"`
	Dimensions []Dimension `xml:"Dimension"`
}

type CapStyle struct {
	Name  string `xml:"Name"`
	Title string `xml:"Title"`
}

type Dimension struct {
	Name    string `xml:"name,attr"`
	Units   string `xml:"units,attr"`
	Default string `xml:"default,attr,omitempty"`
	Values  string `xml:",chardata"`
}

// Capabilities renders the WMS capabilities document from the layer
// registry. TIME and RUN dimensions use ISO-8601 instants; the
// FORECAST dimension uses ISO-8601 duration form (PT0H, PT3H, ...).
func Capabilities(reg *registry.Registry) ([]byte, error) {
	doc := WMSCapabilities{
		Version: "1.3.0",
		Xmlns:   "http://www.opengis.net/wms",
		Service: Service{
			Name:     "WMS",
			Title:    "Meteorological Tile Server",
			Abstract: "Map tiles rendered from NWP, radar and satellite products",
		},
		Capability: Capability{
			Request: CapRequest{
				GetCapabilities: Operation{Formats: []string{"text/xml"}},
				GetMap:          Operation{Formats: []string{"image/png"}},
			},
			Layer: RootLayer{
				Title: "Meteorological layers",
				CRS:   []string{"EPSG:4326", "CRS:84", "EPSG:3857"},
			},
		},
	}

	for _, l := range reg.Layers() {
		cl := CapLayer{
			Queryable: 0,
			Name:      l.Name,
			Title:     strings.ReplaceAll(l.Name, "_", " "),
		}
		for _, s := range l.Styles {
			cl.Styles = append(cl.Styles, CapStyle{Name: s, Title: s})
		}
		switch l.Kind {
		case registry.Observation:
			cl.Dimensions = append(cl.Dimensions, Dimension{
				Name: "time", Units: "ISO8601", Default: "current", Values: "current",
			})
		case registry.Forecast:
			cl.Dimensions = append(cl.Dimensions,
				Dimension{Name: "run", Units: "ISO8601", Default: "current", Values: "current"},
				Dimension{Name: "forecast", Units: "ISO8601", Default: "PT0H", Values: forecastHours(120, 3)},
			)
		}
		doc.Capability.Layer.Layers = append(doc.Capability.Layer.Layers, cl)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func forecastHours(max, step int) string {
	var b strings.Builder
	for h := 0; h <= max; h += step {
		if h > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "PT%dH", h)
	}
	return b.String()
}
