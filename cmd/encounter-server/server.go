package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/encounters/internal/config"
	"github.com/ehr/encounters/internal/domain/encounter"
	"github.com/ehr/encounters/internal/platform/db"
	"github.com/ehr/encounters/internal/platform/metrics"
	"github.com/ehr/encounters/internal/platform/middleware"
	"github.com/ehr/encounters/internal/platform/openapi"
	"github.com/ehr/encounters/internal/platform/webui"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

// newServer builds the HTTP server around an opened store.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(webui.Prefix))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	svc := encounter.NewService(st.repo, logger)

	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc.SetMetrics(metrics.New(reg))
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			OK:   true,
			Time: time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if st.pinger != nil {
		e.GET("/health/db", db.HealthHandler(st.pinger))
	}

	apiDocs(version).RegisterRoutes(e)
	webui.RegisterRoutes(e)
	encounter.NewHandler(svc).RegisterRoutes(e.Group(""))

	return e
}

func apiDocs(version string) *openapi.Generator {
	var all, exam []string
	for _, s := range encounter.Statuses() {
		all = append(all, string(s))
		if encounter.RequiresExam(s) {
			exam = append(exam, string(s))
		}
	}
	return openapi.NewGenerator(version, all, exam)
}
