package journals

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/platform/httpx"
)

// Handler exposes the journal engine over JSON.
type Handler struct {
	engine *Engine
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, total, err := h.engine.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list journals", err)
		return
	}
	filter = filter.Normalize()
	httpx.JSON(w, http.StatusOK, listResponse{Entries: entries, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	entry, err := h.engine.CreateDraft(r.Context(), in)
	if err != nil {
		h.fail(w, "create journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.engine.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	entry, err := h.engine.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.engine.Post(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, "post journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reverseRequest
	if err := httpx.DecodeOptionalJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.engine.Reverse(r.Context(), ReverseInput{EntryID: id, Reason: req.Reason, ReversedBy: httpx.Actor(r)})
	if err != nil {
		h.fail(w, "reverse journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (DraftInput, bool) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return DraftInput{}, false
	}
	in, err := req.toInput(httpx.Actor(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return DraftInput{}, false
	}
	return in, true
}

func parseFilter(r *http.Request) (accounting.EntryFilter, error) {
	q := r.URL.Query()
	from, err := httpx.ParseDate(r, "from")
	if err != nil {
		return accounting.EntryFilter{}, err
	}
	to, err := httpx.ParseDate(r, "to")
	if err != nil {
		return accounting.EntryFilter{}, err
	}
	filter := accounting.EntryFilter{From: from, To: to, Status: accounting.EntryStatus(q.Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		return accounting.EntryFilter{}, httpx.ErrValidation
	}
	if raw := q.Get("page"); raw != "" {
		if filter.Page, err = strconv.Atoi(raw); err != nil {
			return accounting.EntryFilter{}, httpx.ErrValidation
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if filter.PageSize, err = strconv.Atoi(raw); err != nil {
			return accounting.EntryFilter{}, httpx.ErrValidation
		}
	}
	return filter, nil
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
