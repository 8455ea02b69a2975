package catalog

import "expvar"

var (
	metricCatalogHitTotal      = expvar.NewInt("catalog_hit_total")
	metricCatalogFallbackTotal = expvar.NewInt("catalog_fallback_total")
)
