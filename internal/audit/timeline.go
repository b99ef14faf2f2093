package audit

import (
	"context"
	"fmt"
	"time"
)

// TimelineFilters holds the basic filters for the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// Matches reports whether ev satisfies the non-paging filters.
func (f TimelineFilters) Matches(ev Event) bool {
	if !f.From.IsZero() && ev.At.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ev.At.After(f.To) {
		return false
	}
	if f.Actor != "" && ev.Actor != f.Actor {
		return false
	}
	if f.Entity != "" && ev.Entity != f.Entity {
		return false
	}
	if f.EntityID != "" && ev.EntityID != f.EntityID {
		return false
	}
	if f.Action != "" && ev.Action != f.Action {
		return false
	}
	return true
}

// WindowQuery is a filtered slice of the trail, newest first.
type WindowQuery struct {
	Filters TimelineFilters
	Offset  int
	Limit   int
}

// Store reads recorded events back.
type Store interface {
	Window(ctx context.Context, q WindowQuery) ([]Event, error)
}

// PagingInfo stores simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"has_next"`
	PageSize int  `json:"page_size"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Event    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

// Service serves the audit timeline.
type Service struct {
	store Store
}

// NewService builds the audit timeline service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Timeline fetches one page of audit events.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("audit: store not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.store.Window(ctx, WindowQuery{Filters: filters, Offset: (page - 1) * pageSize, Limit: pageSize + 1})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
