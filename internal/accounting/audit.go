package accounting

import (
	"context"
	"log/slog"

	"github.com/ines-erp/ledger/internal/audit"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, event audit.Event) error
}

// Recorder forwards events to the audit port once the ledger change has
// committed. Sink failures are logged; the committed change stands.
type Recorder struct {
	port   AuditPort
	logger *slog.Logger
}

// NewRecorder wires an audit port. Both arguments may be nil.
func NewRecorder(port AuditPort, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{port: port, logger: logger}
}

// Record sends event, logging any sink error.
func (r *Recorder) Record(ctx context.Context, event audit.Event) {
	if r == nil || r.port == nil {
		return
	}
	if err := r.port.Record(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "audit sink failed",
			slog.String("action", event.Action),
			slog.String("entity_id", event.EntityID),
			slog.Any("error", err))
	}
}
