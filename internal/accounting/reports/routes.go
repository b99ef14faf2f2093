package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ines-erp/ledger/internal/platform/httpx"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/cash-flow", h.CashFlow)
	r.Get("/pack", h.Pack)
	r.Get("/budgets/{id}/variance", h.BudgetVariance)
}

func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := httpx.ParseDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return time.Time{}, time.Time{}, false
	}
	to, err := httpx.ParseDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
