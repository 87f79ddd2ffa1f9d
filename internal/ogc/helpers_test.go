package ogc

import (
	"meteotiles/internal/catalog"
	"meteotiles/internal/registry"
)

func catalogSelector() catalog.TimeSelector { return catalog.TimeSelector{} }

func testRegistry() *registry.Registry { return registry.Load(nil) }
