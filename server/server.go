// Package server assembles the HTTP surface: global middleware, the JSON
// REST API, the product feed and the operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/a8ns/storefront/internal/metrics"
	"github.com/a8ns/storefront/internal/observability"
	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/internal/version"
	apiv1 "github.com/a8ns/storefront/server/router/api/v1"
	"github.com/a8ns/storefront/server/runner/backfill"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

// shutdownTimeout bounds the drain of in-flight requests during shutdown.
const shutdownTimeout = 5 * time.Second

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, searchService *search.Service, backfillRunner *backfill.Runner) (*Server, error) {
	s := &Server{
		Secret:  profile.JWTSecret,
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	// Debug mode includes internal error details in responses; only safe in dev.
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: profile.AllowedOrigins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	echoServer.Use(observability.RequestLoggingMiddleware())

	echoServer.GET("/healthz", s.healthz)
	echoServer.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(s.Secret, profile, store, searchService, backfillRunner)
	apiV1Service.RegisterRoutes(echoServer)

	s.echoServer = echoServer
	return s, nil
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Database      string `json:"database"`
}

// healthz handles GET /healthz. It pings the database so load balancers stop
// routing to an instance that lost its connection.
func (s *Server) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Version:  version.GetCurrentVersion(s.Profile.Mode),
		Database: "ok",
	}
	if schemaVersion, err := s.Store.GetCurrentSchemaVersion(); err == nil {
		resp.SchemaVersion = schemaVersion
	}

	if err := s.Store.Ping(ctx); err != nil {
		slog.Warn("health check failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server listening",
		slog.String("address", address),
		slog.String("mode", s.Profile.Mode),
		slog.String("version", version.GetCurrentVersion(s.Profile.Mode)))
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("storefront stopped")
}
