// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

type mapping struct {
	target error
	status int
	title  string
}

var mappings = []mapping{
	{ErrNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrAccountNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrEntryNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrPeriodNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrBudgetNotFound, http.StatusNotFound, "Not Found"},
	{ErrValidation, http.StatusBadRequest, "Validation Failed"},
	{shared.ErrValidation, http.StatusUnprocessableEntity, "Validation Failed"},
	{shared.ErrTooFewLines, http.StatusUnprocessableEntity, "Validation Failed"},
	{shared.ErrUnbalanced, http.StatusUnprocessableEntity, "Unbalanced Entry"},
	{shared.ErrInvalidAccount, http.StatusUnprocessableEntity, "Invalid Account"},
	{shared.ErrClosedPeriod, http.StatusConflict, "Closed Period"},
	{shared.ErrAlreadyReversed, http.StatusConflict, "Already Reversed"},
	{shared.ErrNotPosted, http.StatusConflict, "Not Posted"},
	{shared.ErrReversalOfReversal, http.StatusConflict, "Invalid Status"},
	{shared.ErrInvalidStatus, http.StatusConflict, "Invalid Status"},
	{shared.ErrPeriodAlreadyClosed, http.StatusConflict, "Period Closed"},
	{shared.ErrPeriodOverlap, http.StatusConflict, "Period Overlap"},
	{shared.ErrDuplicate, http.StatusConflict, "Duplicate"},
	{shared.ErrConcurrentModification, http.StatusServiceUnavailable, "Concurrent Modification"},
}

// StatusFor returns the HTTP status and title for err.
func StatusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "Validation Failed"
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.title
		}
	}
	return http.StatusInternalServerError, "Internal Error"
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	Problem(w, status, title, detail)
}
