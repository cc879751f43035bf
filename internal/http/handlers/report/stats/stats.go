// Package stats реализует HTTP-обработчик сводной статистики продаж
// за произвольный период.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/khaydarthegreat/brutalbot/internal/http/response"
	"github.com/khaydarthegreat/brutalbot/internal/lib/period"
	"github.com/khaydarthegreat/brutalbot/internal/lib/sl"
	"github.com/khaydarthegreat/brutalbot/internal/models"
)

// Service описывает интерфейс агрегатора отчетов.
type Service interface {
	Stats(ctx context.Context, r period.Range) (*models.ReportStats, error)
}

// Handler обрабатывает запросы сводной статистики.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	loc      *time.Location
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, loc *time.Location) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		loc:      loc,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.report.stats"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyReportRange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	rng, err := period.ParseCustom(fmt.Sprintf("%s - %s", req.StartDate, req.EndDate), h.loc)
	if errors.Is(err, period.ErrBadFormat) {
		log.Error("bad period", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("dates must be in format 02.01.2006"))
		return
	}

	stats, err := h.service.Stats(r.Context(), rng)
	if err != nil {
		log.Error("failed to build stats report", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build report"))
		return
	}

	log.Info("stats report served", slog.String("period", rng.String()))
	render.JSON(w, r, response.StatusOKWithData(stats))
}
