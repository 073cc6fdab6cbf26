package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/logger"
	"github.com/nhle/task-tracker/internal/tracker"
)

const callerKey = "caller"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)
)

// metrics records request counts and latencies labelled by route pattern.
func metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		inFlightRequests.Inc()
		defer inFlightRequests.Dec()

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		status := strconv.Itoa(c.Response().Status)
		requestsTotal.WithLabelValues(method, route, status).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}

// requestLog returns the logger for the current request.
func (s *Server) requestLog(c echo.Context) *logrus.Entry {
	return logger.WithRequestID(s.log, c.Response().Header().Get(echo.HeaderXRequestID))
}

// logRequests logs each completed request.
func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		entry := s.requestLog(c).WithFields(logrus.Fields{
			"method":      c.Request().Method,
			"path":        c.Request().URL.Path,
			"status":      c.Response().Status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   c.RealIP(),
		})
		if caller, ok := c.Get(callerKey).(access.Caller); ok {
			entry = entry.WithField("user_id", caller.UserID)
		}
		entry.Info("request completed")
		return nil
	}
}

// authenticate requires a valid bearer token and stores the resolved
// caller on the context.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return auth.ErrInvalidToken
		}

		claimed, err := s.tokens.Parse(raw)
		if err != nil {
			return err
		}

		// Re-resolve so deleted users and role changes take effect at once.
		caller, err := s.svc.Resolve(c.Request().Context(), claimed.UserID)
		switch {
		case errors.Is(err, tracker.ErrForbidden), errors.Is(err, tracker.ErrNotFound):
			return auth.ErrInvalidToken
		case err != nil:
			return fmt.Errorf("resolving caller: %w", err)
		}

		c.Set(callerKey, caller)
		return next(c)
	}
}

func callerFrom(c echo.Context) access.Caller {
	caller, _ := c.Get(callerKey).(access.Caller)
	return caller
}
