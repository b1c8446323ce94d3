package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the server's Prometheus collectors. Each server owns its registry.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	submissionsTotal *prometheus.CounterVec
	entriesImported  prometheus.Counter
	entriesSkipped   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datahub_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		submissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datahub_submissions_total",
				Help: "Total number of form submissions",
			},
			[]string{"status"}, // accepted, rejected
		),
		entriesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datahub_refdata_entries_imported_total",
			Help: "Total number of data bank entries inserted by bulk imports",
		}),
		entriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datahub_refdata_entries_skipped_total",
			Help: "Total number of data bank entries skipped by bulk imports",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration, m.submissionsTotal, m.entriesImported, m.entriesSkipped,
	)
	return m
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		route := ctx.Path()
		if route == "/metrics" {
			return next(ctx)
		}
		timer := prometheus.NewTimer(m.requestDuration.WithLabelValues(ctx.Request().Method, route))
		err := next(ctx)
		timer.ObserveDuration()

		status := ctx.Response().Status
		if err != nil {
			// the error handler has not run yet
			status = statusOf(err)
		}
		m.requestsTotal.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(status)).Inc()
		return err
	}
}

func (m *metrics) submission(err error) {
	if err != nil {
		m.submissionsTotal.WithLabelValues("rejected").Inc()
		return
	}
	m.submissionsTotal.WithLabelValues("accepted").Inc()
}

func (m *metrics) bulkImport(inserted, skipped int) {
	m.entriesImported.Add(float64(inserted))
	m.entriesSkipped.Add(float64(skipped))
}
