package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes records into audit_logs.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink returns a new PostgresSink.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Record persists the event.
func (s *PostgresSink) Record(ctx context.Context, event Event) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: postgres sink not initialised")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	before, err := marshalState(event.Before)
	if err != nil {
		return err
	}
	after, err := marshalState(event.After)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, before_state, after_state, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		event.Actor, event.Action, event.Entity, event.EntityID, before, after, optionalTime(event.At))
	return err
}

// Window implements Store.
func (s *PostgresSink) Window(ctx context.Context, q WindowQuery) ([]Event, error) {
	f := q.Filters
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT actor, action, entity, entity_id, before_state, after_state, occurred_at
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3 = '' OR actor = $3)
  AND ($4 = '' OR entity = $4)
  AND ($5 = '' OR entity_id = $5)
  AND ($6 = '' OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT $8`,
		optionalTime(f.From), optionalTime(f.To), strings.TrimSpace(f.Actor), strings.TrimSpace(f.Entity),
		strings.TrimSpace(f.EntityID), strings.TrimSpace(f.Action), q.Offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		var before, after []byte
		if err := rows.Scan(&ev.Actor, &ev.Action, &ev.Entity, &ev.EntityID, &before, &after, &ev.At); err != nil {
			return nil, err
		}
		if len(before) > 0 {
			ev.Before = json.RawMessage(before)
		}
		if len(after) > 0 {
			ev.After = json.RawMessage(after)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func marshalState(state any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
