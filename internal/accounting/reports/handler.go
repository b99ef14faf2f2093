package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/platform/httpx"
)

type Handler struct {
	generator *Generator
	logger    *slog.Logger
}

func NewHandler(logger *slog.Logger, generator *Generator) *Handler {
	return &Handler{logger: logger, generator: generator}
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.generator.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.fail(w, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.generator.IncomeStatement(r.Context(), from, to)
	if err != nil {
		h.fail(w, "income statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.generator.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.fail(w, "balance sheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.generator.CashFlowStatement(r.Context(), from, to)
	if err != nil {
		h.fail(w, "cash flow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Pack(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	pack, err := h.generator.Pack(r.Context(), from, to)
	if err != nil {
		h.fail(w, "statement pack", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pack)
}

func (h *Handler) BudgetVariance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a uuid")
		return
	}
	asOf, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var thresholds Thresholds
	for name, target := range map[string]**decimal.Decimal{"threshold_amount": &thresholds.Amount, "threshold_percent": &thresholds.Percent} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a number")
			return
		}
		*target = &v
	}
	report, err := h.generator.BudgetVariance(r.Context(), id, asOf, thresholds)
	if err != nil {
		h.fail(w, "budget variance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
