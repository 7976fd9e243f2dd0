package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CatalogReloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "catalog_reloads_total", Help: "Instrument catalog reloads"},
	)
	CatalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "catalog_records", Help: "Records in the current catalog snapshot"},
	)
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "resolutions_total", Help: "Contract resolutions by outcome"},
		[]string{"root", "outcome"},
	)
	CandlesNormalizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "candles_normalized_total", Help: "Candles accepted by the normalizer"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by direction"},
		[]string{"symbol", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		CatalogReloadsTotal,
		CatalogRecords,
		ResolutionsTotal,
		CandlesNormalizedTotal,
		SignalsTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
