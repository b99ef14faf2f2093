package audithttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ines-erp/ledger/internal/audit"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	sink := audit.NewMemorySink()
	for i, action := range []string{"journal.post", "journal.reverse", "period.close"} {
		require.NoError(t, sink.Record(context.Background(), audit.Event{
			Actor:    "controller",
			Action:   action,
			Entity:   "journal_entry",
			EntityID: string(rune('a' + i)),
			At:       time.Date(2024, 6, 10+i, 12, 0, 0, 0, time.UTC),
		}))
	}
	r := chi.NewRouter()
	r.Route("/audit", NewHandler(audit.NewService(sink), slog.Default()).MountRoutes)
	return r
}

func TestTimelineEndpoint(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/audit/?action=journal.reverse&to=2024-06-11", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	require.Equal(t, "journal.reverse", body.Rows[0].Action)
}

func TestTimelineRejectsBadDates(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/audit/?from=June", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimelineRateLimited(t *testing.T) {
	router := newRouter(t)
	var last int
	for i := 0; i <= rateLimit; i++ {
		req := httptest.NewRequest(http.MethodGet, "/audit/", nil)
		req.Header.Set("X-Actor", "auditor")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
