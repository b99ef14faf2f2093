package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event is one entry in the ledger audit trail.
type Event struct {
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	At       time.Time `json:"at"`
	Before   any       `json:"before,omitempty"`
	After    any       `json:"after,omitempty"`
}

// Validate ensures the event carries the minimum fields.
func (e Event) Validate() error {
	if e.Action == "" || e.Entity == "" || e.EntityID == "" {
		return errors.New("audit: event requires action/entity/entity_id")
	}
	return nil
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// Multi fans one event out to several sinks and joins their errors.
type Multi []Sink

// Record forwards the event to every non-nil sink.
func (m Multi) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events as structured log records.
type LogSink struct {
	Logger *slog.Logger
}

// Record logs the event at info level.
func (s LogSink) Record(ctx context.Context, event Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "audit",
		slog.String("actor", event.Actor),
		slog.String("action", event.Action),
		slog.String("entity", event.Entity),
		slog.String("entity_id", event.EntityID),
		slog.Time("at", event.At),
	)
	return nil
}
