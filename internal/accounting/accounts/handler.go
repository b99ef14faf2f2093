package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/platform/httpx"
)

// Handler serves the chart of accounts over JSON.
type Handler struct {
	service *Registry
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Registry) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := accounting.AccountFilter{Type: accounting.AccountType(q.Get("type"))}
	if raw := q.Get("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "include_inactive must be a boolean")
			return
		}
		filter.IncludeInactive = include
	}
	if raw := q.Get("parent_id"); raw != "" {
		parentID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_id must be a uuid")
			return
		}
		filter.ParentID = &parentID
	}
	accounts, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req.toInput(httpx.Actor(r)))
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, h.service.Balance)
}

func (h *Handler) Rollup(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, h.service.Rollup)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, *time.Time) (decimal.Decimal, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	asOfDate, err := httpx.ParseDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var asOf *time.Time
	resp := balanceResponse{AccountID: id}
	if !asOfDate.IsZero() {
		asOf = &asOfDate
		resp.AsOf = asOfDate.Format("2006-01-02")
	}
	resp.Balance, err = fn(r.Context(), id, asOf)
	if err != nil {
		h.fail(w, "account balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	names, err := h.service.HierarchyPath(r.Context(), id)
	if err != nil {
		h.fail(w, "account path", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pathResponse{AccountID: id, Path: names})
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.service.Deactivate(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, "deactivate account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.Move(r.Context(), id, req.ParentID, httpx.Actor(r))
	if err != nil {
		h.fail(w, "move account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
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
