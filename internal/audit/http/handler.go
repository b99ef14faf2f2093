package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ines-erp/ledger/internal/audit"
	"github.com/ines-erp/ledger/internal/platform/httpx"
)

// Handler serves the audit timeline as JSON.
type Handler struct {
	service *audit.Service
	logger  *slog.Logger
}

// NewHandler builds a timeline handler.
func NewHandler(service *audit.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	from, err := httpx.ParseDate(r, "from")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	to, err := httpx.ParseDate(r, "to")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1).Add(-1)
	}
	filters := audit.TimelineFilters{
		From:     from,
		To:       to,
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	if raw := q.Get("page"); raw != "" {
		if filters.Page, err = strconv.Atoi(raw); err != nil {
			return audit.TimelineFilters{}, httpx.ErrValidation
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if filters.PageSize, err = strconv.Atoi(raw); err != nil {
			return audit.TimelineFilters{}, httpx.ErrValidation
		}
	}
	return filters, nil
}
