// Package metrics exposes Prometheus instruments for HTTP traffic and the
// booking and ordering paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurant"

// Metrics holds every collector, registered on its own registry so tests
// can create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AvailabilityQueries prometheus.Counter
	TablesOffered       prometheus.Histogram
	Reservations        *prometheus.CounterVec
	OrderLines          *prometheus.CounterVec
	Checkouts           *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// Reservation outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AvailabilityQueries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_queries_total",
			Help:      "Resolved availability queries.",
		}),
		TablesOffered: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_tables_offered",
			Help:      "Number of free tables returned per availability query.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		Reservations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		OrderLines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_lines_priced_total",
			Help:      "Order lines priced, split by member discount.",
		}, []string{"member"}),
		Checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout transactions by result.",
		}, []string{"result"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Activity events handed to the broker by type and result.",
		}, []string{"type", "result"}),
	}
}

// ObserveOrderLine counts a priced line.
func (m *Metrics) ObserveOrderLine(member bool) {
	if m == nil {
		return
	}
	m.OrderLines.WithLabelValues(strconv.FormatBool(member)).Inc()
}

// ObserveReservation counts a reservation attempt.
func (m *Metrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(outcome).Inc()
}

// ObserveAvailability records one resolved query and its result size.
func (m *Metrics) ObserveAvailability(offered int) {
	if m == nil {
		return
	}
	m.AvailabilityQueries.Inc()
	m.TablesOffered.Observe(float64(offered))
}

// ObserveCheckout counts a checkout by result ("ok" or "failed").
func (m *Metrics) ObserveCheckout(result string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result).Inc()
}

// ObserveEvent counts an event publish attempt.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// Middleware records request counts and latency keyed by the matched route
// template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
