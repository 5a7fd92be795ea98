package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	m := New()
	m.ObserveReservation(OutcomeCreated)
	m.ObserveReservation(OutcomeConflict)
	m.ObserveReservation(OutcomeCreated)
	m.ObserveOrderLine(true)
	m.ObserveAvailability(3)
	m.ObserveEvent("reservation.created", errors.New("dial"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reservations.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderLines.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityQueries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("reservation.created", "failed")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveOrderLine(false) })
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/menu", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/menu", "200")))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "restaurant_http_requests_total"))
}
