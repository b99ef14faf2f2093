package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ines-erp/ledger/internal/platform/httpx"
)

const rateLimit = 30
const rateWindow = time.Minute

// MountRoutes registers the audit timeline behind a per-actor rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "audit timeline rate limit exceeded")
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/", h.handleTimeline)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		return "actor:" + actor, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
