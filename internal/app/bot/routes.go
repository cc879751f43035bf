package botapp

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khaydarthegreat/brutalbot/internal/http/handlers/health"
	"github.com/khaydarthegreat/brutalbot/internal/http/handlers/report/clientsbook"
	"github.com/khaydarthegreat/brutalbot/internal/http/handlers/report/salesbook"
	"github.com/khaydarthegreat/brutalbot/internal/http/handlers/report/stats"
	"github.com/khaydarthegreat/brutalbot/internal/http/middlewarectx"
	reportservice "github.com/khaydarthegreat/brutalbot/internal/services/report"
)

// RegisterRoutes регистрирует маршруты служебного сервера: health,
// метрики и JSON API отчетов для внешних дашбордов.
func RegisterRoutes(r chi.Router, logger *slog.Logger, reportService *reportservice.Service, loc *time.Location) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/reports/stats", stats.New(logger, reportService, loc).ServeHTTP)
			r.Post("/reports/sales", salesbook.New(logger, reportService, loc).ServeHTTP)
			r.Post("/reports/clients", clientsbook.New(logger, reportService, loc).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
