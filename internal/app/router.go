package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/budgets"
	"github.com/ines-erp/ledger/internal/accounting/journals"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/reports"
	audithttp "github.com/ines-erp/ledger/internal/audit/http"
	"github.com/ines-erp/ledger/internal/observability"
	"github.com/ines-erp/ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AccountsHandler *accounts.Handler
	PeriodsHandler  *periods.Handler
	JournalsHandler *journals.Handler
	BudgetsHandler  *budgets.Handler
	ReportsHandler  *reports.Handler
	AuditHandler    *audithttp.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouterParams builds every HTTP handler for a wired ledger.
func NewRouterParams(cfg *Config, logger *slog.Logger, metrics *observability.Metrics, l *Ledger) RouterParams {
	return RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, l.Accounts),
		PeriodsHandler:  periods.NewHandler(logger, l.Periods),
		JournalsHandler: journals.NewHandler(logger, l.Journals),
		BudgetsHandler:  budgets.NewHandler(logger, l.Budgets),
		ReportsHandler:  reports.NewHandler(logger, l.Reports),
		AuditHandler:    audithttp.NewHandler(l.Timeline, logger),
		Metrics:         metrics,
	}
}

// NewRouter constructs the chi.Router with ledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AccountsHandler != nil {
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
	}
	if params.PeriodsHandler != nil {
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
	}
	if params.JournalsHandler != nil {
		r.Route("/journals", params.JournalsHandler.MountRoutes)
	}
	if params.BudgetsHandler != nil {
		r.Route("/budgets", params.BudgetsHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
