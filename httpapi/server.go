// Package httpapi exposes the recommendation service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/recommend"
	"github.com/doujins-org/recokit/store"
)

// Service is the recommendation surface the handlers call.
type Service interface {
	Recommend(ctx context.Context, q recommend.Query) (ranking.Result, error)
	Friends(ctx context.Context) ([]store.Friend, error)
	Stats(ctx context.Context) (recommend.StatsReport, error)
	DebugSearch(ctx context.Context, text string) (recommend.DebugSearchResult, error)
	RecordEvent(ctx context.Context, e recommend.Event) (int64, error)
	Health(ctx context.Context) error
}

var _ Service = (*recommend.Service)(nil)

type Options struct {
	Logger *slog.Logger
	// Gatherer backs GET /metrics; nil omits the route.
	Gatherer prometheus.Gatherer
}

type Server struct {
	echo     *echo.Echo
	svc      Service
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds the echo instance with middleware and routes.
func New(svc Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, validate: validator.New(), logger: logger}
	e.HTTPErrorHandler = errorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	s.routes(opts.Gatherer)
	return s
}

func (s *Server) routes(g prometheus.Gatherer) {
	api := s.echo.Group("/api")
	api.GET("/recommendations", s.getRecommendations)
	api.GET("/friends", s.getFriends)
	api.POST("/events", s.postEvent)

	debug := api.Group("/debug")
	debug.GET("/search", s.getDebugSearch)
	debug.GET("/stats", s.getDebugStats)

	s.echo.GET("/health", s.getHealth)
	if g != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error { return s.echo.Start(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }
