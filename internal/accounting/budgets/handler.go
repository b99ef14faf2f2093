package budgets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ines-erp/ledger/internal/platform/httpx"
)

type Handler struct {
	tracker *Tracker
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, tracker *Tracker) *Handler {
	return &Handler{logger: logger, tracker: tracker}
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
	budgets, err := h.tracker.List(r.Context(), year)
	if err != nil {
		h.fail(w, "list budgets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, budgets)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := req.toInput(httpx.Actor(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	budget, err := h.tracker.CreateBudget(r.Context(), in)
	if err != nil {
		h.fail(w, "create budget", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, budget)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	budget, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get budget", err)
		return
	}
	httpx.JSON(w, http.StatusOK, budget)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	budget, err := h.tracker.Approve(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, "approve budget", err)
		return
	}
	httpx.JSON(w, http.StatusOK, budget)
}

func (h *Handler) Actual(w http.ResponseWriter, r *http.Request) {
	lineID, ok := urlID(w, r, "lineID")
	if !ok {
		return
	}
	asOf, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actual, err := h.tracker.ActualFor(r.Context(), lineID, asOf)
	if err != nil {
		h.fail(w, "budget actual", err)
		return
	}
	httpx.JSON(w, http.StatusOK, actualResponse{LineID: lineID, AsOf: h.tracker.asOf(asOf).Format("2006-01-02"), Actual: actual})
}

func (h *Handler) Variance(w http.ResponseWriter, r *http.Request) {
	lineID, ok := urlID(w, r, "lineID")
	if !ok {
		return
	}
	asOf, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	variance, err := h.tracker.Variance(r.Context(), lineID, asOf)
	if err != nil {
		h.fail(w, "budget variance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, variance)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
