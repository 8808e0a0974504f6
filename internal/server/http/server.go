package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/database"
	"github.com/Additional-Code/catalog/internal/observability"
	"github.com/Additional-Code/catalog/internal/presentation/http/response"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

const healthTimeout = 2 * time.Second

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

// NewEcho configures the Echo router with request ids, panic recovery,
// tracing and the health and metrics endpoints.
func NewEcho(cfg config.Config, obs *observability.Manager, conns *database.Connections, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}

	e.GET("/health", func(c echo.Context) error {
		b := response.New(c)
		if conns != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			defer cancel()
			if err := conns.Writer.PingContext(ctx); err != nil {
				return b.WithError(errorbank.Unavailable("database unreachable", errorbank.WithCause(err))).Build()
			}
		}
		return b.WithData(map[string]string{"status": "ok"}).Build()
	})

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(obs.PrometheusPath(), echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// errorHandler renders router level failures (unknown routes, panics) in the
// same envelope as handler errors.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr error = err
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg := http.StatusText(httpErr.Code)
			switch {
			case httpErr.Code == http.StatusNotFound:
				appErr = errorbank.NotFound(msg)
			case httpErr.Code < http.StatusInternalServerError:
				appErr = errorbank.BadRequest(msg)
			default:
				appErr = errorbank.Internal(msg, errorbank.WithCause(err))
			}
			if httpErr.Code != http.StatusNotFound {
				logger.Warn("http request rejected", zap.String("path", c.Path()), zap.Error(err))
			}
			if err := response.New(c).WithStatus(httpErr.Code).WithError(appErr).Build(); err != nil {
				logger.Error("write error response", zap.Error(err))
			}
			return
		}

		logger.Error("http request failed", zap.String("path", c.Path()), zap.Error(err))
		if err := response.New(c).WithError(appErr).Build(); err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
