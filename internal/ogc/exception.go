package ogc

import (
	"encoding/xml"
	"errors"
	"net/http"

	"meteotiles/internal/dispatch"
)

// ServiceExceptionReport is the WMS 1.3.0 error document.
type ServiceExceptionReport struct {
	XMLName   xml.Name         `xml:"ServiceExceptionReport"`
	Version   string           `xml:"version,attr"`
	Xmlns     string           `xml:"xmlns,attr"`
	Exception ServiceException `xml:"ServiceException"`
}

type ServiceException struct {
	Code    string `xml:"code,attr,omitempty"`
	Message string `xml:",chardata"`
}

// ExceptionFor maps a pipeline error onto its OGC code, HTTP status
// and Retry-After seconds (0 when not applicable). A failed render
// always surfaces as an exception document, never as a placeholder
// image.
func ExceptionFor(err error) (status int, retryAfter int, body []byte) {
	code := "InternalError"
	status = http.StatusInternalServerError
	msg := err.Error()

	var de *dispatch.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case dispatch.KindLayerNotDefined:
			code, status = "LayerNotDefined", http.StatusBadRequest
		case dispatch.KindStyleNotDefined:
			code, status = "StyleNotDefined", http.StatusBadRequest
		case dispatch.KindInvalidCRS, dispatch.KindUnsupportedProjection:
			code, status = "InvalidCRS", http.StatusBadRequest
		case dispatch.KindInvalidBBox:
			code, status = "InvalidBBoxValue", http.StatusBadRequest
		case dispatch.KindInvalidFormat:
			code, status = "InvalidFormat", http.StatusBadRequest
		case dispatch.KindSourceUnavailable:
			code, status = "CurrentUpdateSequence", http.StatusServiceUnavailable
			retryAfter = 15
		case dispatch.KindDecodeFailed:
			code, status = "InternalError", http.StatusInternalServerError
		case dispatch.KindOverloaded:
			code, status = "InternalError", http.StatusServiceUnavailable
			retryAfter = 5
		}
	}

	doc := ServiceExceptionReport{
		Version:   "1.3.0",
		Xmlns:     "http://www.opengis.net/ogc",
		Exception: ServiceException{Code: code, Message: msg},
	}
	out, merr := xml.MarshalIndent(doc, "", "  ")
	if merr != nil {
		return status, retryAfter, []byte(xml.Header)
	}
	return status, retryAfter, append([]byte(xml.Header), out...)
}
