package periods

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ines-erp/ledger/internal/platform/httpx"
)

type Handler struct {
	service *Manager
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Manager) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be an integer")
			return
		}
		year = &y
	}
	periods, err := h.service.List(r.Context(), year)
	if err != nil {
		h.fail(w, "list periods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := req.toInput(httpx.Actor(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), in)
	if err != nil {
		h.fail(w, "create period", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	period, err := h.service.Current(r.Context())
	if err != nil {
		h.fail(w, "current period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) Postable(w http.ResponseWriter, r *http.Request) {
	day, err := httpx.ParseDate(r, "date")
	if err != nil || day.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	ok, err := h.service.IsPostable(r.Context(), day)
	if err != nil {
		h.fail(w, "period postable", err)
		return
	}
	httpx.JSON(w, http.StatusOK, postableResponse{Date: day.Format("2006-01-02"), Postable: ok})
}

func (h *Handler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	period, err := h.service.SetCurrent(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, "set current period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	period, err := h.service.ClosePeriod(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, "close period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
