// Package observability wires request-scoped structured logging for the HTTP
// surface. Every request gets a UUID, echoed in the X-Request-Id header and
// attached to all log lines emitted on its behalf.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/internal/metrics"
)

const (
	// LogFieldRequestID is the field name for the request ID.
	LogFieldRequestID = "request_id"
	// LogFieldMethod is the field name for the HTTP method.
	LogFieldMethod = "method"
	// LogFieldPath is the field name for the route path.
	LogFieldPath = "path"
	// LogFieldStatus is the field name for the response status code.
	LogFieldStatus = "status"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"

	// RequestIDHeader is the response header carrying the request ID.
	RequestIDHeader = "X-Request-Id"
)

type ctxKey struct{}

// Init installs the process-wide slog handler. Dev mode logs human-readable
// text at debug level; prod logs JSON at info level.
func Init(dev bool) {
	var handler slog.Handler
	if dev {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns the default logger annotated with the request ID
// when one is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return slog.Default().With(slog.String(LogFieldRequestID, id))
	}
	return slog.Default()
}

// RequestLoggingMiddleware assigns a request ID, records latency and status,
// and feeds the HTTP metrics.
func RequestLoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)

			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				} else if status < 400 {
					status = 500
				}
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			metrics.ObserveHTTPRequest(c.Request().Method, route, strconv.Itoa(status), elapsed)

			logger := slog.Default().With(
				slog.String(LogFieldRequestID, requestID),
				slog.String(LogFieldMethod, c.Request().Method),
				slog.String(LogFieldPath, c.Request().URL.Path),
				slog.Int(LogFieldStatus, status),
				slog.Int64(LogFieldDuration, elapsed.Milliseconds()),
			)
			if err != nil {
				logger.Warn("request failed", slog.String("error", err.Error()))
			} else if status >= 500 {
				logger.Warn("request completed with server error")
			} else {
				logger.Info("request completed")
			}
			return err
		}
	}
}
