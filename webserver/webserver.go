package webserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radryc/binance-exporter/collector"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binance_exporter_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

// Snapshotter is the collection surface the webserver scrapes.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]collector.Record, error)
}

type RequestHandler struct {
	mux          *http.ServeMux
	collector    Snapshotter
	baseRegistry *prometheus.Registry
	logger       *zap.SugaredLogger
	onFatal      func(error)
}

// New wires the scrape routes. baseRegistry carries the exporter's own
// telemetry; wallet metrics are collected fresh on every scrape. onFatal is
// invoked after a failed snapshot so the process shuts down instead of ever
// serving partial data.
func New(s *http.ServeMux, c Snapshotter, baseRegistry *prometheus.Registry, logger *zap.SugaredLogger, onFatal func(error)) *RequestHandler {
	h := RequestHandler{s, c, baseRegistry, logger, onFatal}
	baseRegistry.MustRegister(httpRequestsTotal)
	h.registerRoutes()
	return &h
}

func (h *RequestHandler) registerRoutes() {
	h.mux.HandleFunc("/", h.Root)
	h.mux.HandleFunc("/metrics", h.Metrics)
}

// Root redirects to the metrics endpoint.
func (h *RequestHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", http.StatusNotFound)).Inc()
		http.NotFound(w, r)
		return
	}
	httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", http.StatusFound)).Inc()
	http.Redirect(w, r, "/metrics", http.StatusFound)
}

// Metrics runs one full collection round and serializes the snapshot. Every
// scrape performs fresh exchange calls; there is no cache between scrapes.
func (h *RequestHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	records, err := h.collector.Snapshot(r.Context())
	if err != nil {
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", http.StatusInternalServerError)).Inc()
		h.logger.Errorw("snapshot failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		if h.onFatal != nil {
			h.onFatal(err)
		}
		return
	}
	httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", http.StatusOK)).Inc()
	scrape := prometheus.NewRegistry()
	scrape.MustRegister(collector.NewSnapshotCollector(records))
	promhttp.HandlerFor(prometheus.Gatherers{h.baseRegistry, scrape}, promhttp.HandlerOpts{
		// Opt into OpenMetrics to support exemplars.
		EnableOpenMetrics: true,
	}).ServeHTTP(w, r)
}
