package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
)

// Registry owns the chart of accounts and exposes account balances.
type Registry struct {
	store    accounting.Gateway
	recorder *accounting.Recorder
	now      func() time.Time
}

// NewRegistry constructs the account registry.
func NewRegistry(store accounting.Gateway, recorder *accounting.Recorder) *Registry {
	return &Registry{store: store, recorder: recorder, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Registry) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateAccount validates and persists a new account.
func (s *Registry) CreateAccount(ctx context.Context, in CreateAccountInput) (accounting.Account, error) {
	if err := in.Validate(); err != nil {
		return accounting.Account{}, err
	}
	now := s.now()
	account := accounting.Account{
		ID:                 uuid.New(),
		Code:               in.Code,
		Name:               in.Name,
		Description:        in.Description,
		Type:               in.Type,
		NormalSide:         in.NormalSide,
		Category:           in.Category,
		ParentID:           in.ParentID,
		Level:              1,
		OpeningBalance:     in.OpeningBalance,
		CurrentBalance:     in.OpeningBalance,
		IsActive:           true,
		AllowDirectPosting: in.allowDirectPosting(),
		IsControl:          in.IsControl,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		if _, err := tx.GetAccountByCode(ctx, account.Code); err == nil {
			return fmt.Errorf("%w: account code %s already exists", shared.ErrDuplicate, account.Code)
		} else if !isNotFound(err) {
			return err
		}
		if account.ParentID != nil {
			parent, err := s.checkParent(ctx, tx, account, *account.ParentID)
			if err != nil {
				return err
			}
			account.Level = parent.Level + 1
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return accounting.Account{}, err
	}
	s.recorder.Record(ctx, audit.Event{
		Actor:    in.CreatedBy,
		Action:   "account.create",
		Entity:   "account",
		EntityID: account.ID.String(),
		At:       now,
		After:    account,
	})
	return account, nil
}

// checkParent loads the proposed parent and rejects type mismatches and cycles.
func (s *Registry) checkParent(ctx context.Context, r accounting.Reader, child accounting.Account, parentID uuid.UUID) (accounting.Account, error) {
	parent, err := r.GetAccount(ctx, parentID)
	if err != nil {
		if isNotFound(err) {
			return accounting.Account{}, shared.InvalidAccount("", child.Code, "parent account not found")
		}
		return accounting.Account{}, err
	}
	if parent.Type != child.Type {
		return accounting.Account{}, shared.InvalidAccount("", child.Code, "parent "+parent.Code+" has a different type")
	}
	if _, err := ancestors(ctx, r, parent, child.ID); err != nil {
		return accounting.Account{}, err
	}
	return parent, nil
}

// ancestors walks from start to the root, returning the chain leaf-first.
// It fails when the chain revisits a node or reaches forbidden.
func ancestors(ctx context.Context, r accounting.Reader, start accounting.Account, forbidden uuid.UUID) ([]accounting.Account, error) {
	chain := []accounting.Account{start}
	seen := map[uuid.UUID]struct{}{start.ID: {}}
	if start.ID == forbidden {
		return nil, shared.InvalidAccount("", start.Code, "parent chain would form a cycle")
	}
	cur := start
	for cur.ParentID != nil {
		if *cur.ParentID == forbidden {
			return nil, shared.InvalidAccount("", start.Code, "parent chain would form a cycle")
		}
		if _, ok := seen[*cur.ParentID]; ok {
			return nil, shared.InvalidAccount("", cur.Code, "parent chain is cyclic")
		}
		next, err := r.GetAccount(ctx, *cur.ParentID)
		if err != nil {
			return nil, err
		}
		seen[next.ID] = struct{}{}
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

// Get returns a single account.
func (s *Registry) Get(ctx context.Context, id uuid.UUID) (accounting.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// GetByCode returns the account with the given code.
func (s *Registry) GetByCode(ctx context.Context, code string) (accounting.Account, error) {
	return s.store.GetAccountByCode(ctx, code)
}

// List returns the chart of accounts ordered by code.
func (s *Registry) List(ctx context.Context, filter accounting.AccountFilter) ([]accounting.Account, error) {
	return s.store.ListAccounts(ctx, filter)
}

// Balance returns the running balance when asOf is nil, otherwise the opening
// balance plus every posted delta dated on or before asOf.
func (s *Registry) Balance(ctx context.Context, id uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		account, err := r.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		balance, err = balanceOf(ctx, r, account, asOf)
		return err
	})
	return balance, err
}

func balanceOf(ctx context.Context, r accounting.Reader, account accounting.Account, asOf *time.Time) (decimal.Decimal, error) {
	if asOf == nil {
		return account.CurrentBalance, nil
	}
	activity, err := r.Activity(ctx, accounting.ActivityQuery{To: *asOf, AccountIDs: []uuid.UUID{account.ID}})
	if err != nil {
		return decimal.Zero, err
	}
	balance := account.OpeningBalance
	for _, a := range activity {
		balance = balance.Add(a.Net())
	}
	return balance, nil
}

// NetMovement sums posted deltas for the account dated within [from, to].
func (s *Registry) NetMovement(ctx context.Context, id uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	activity, err := s.store.Activity(ctx, accounting.ActivityQuery{From: from, To: to, AccountIDs: []uuid.UUID{id}})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range activity {
		total = total.Add(a.Net())
	}
	return total, nil
}

// Rollup returns the balance of the account plus all of its descendants.
func (s *Registry) Rollup(ctx context.Context, id uuid.UUID, asOf *time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		root, err := r.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		tree, err := descendants(ctx, r, root)
		if err != nil {
			return err
		}
		for _, account := range append([]accounting.Account{root}, tree...) {
			balance, err := balanceOf(ctx, r, account, asOf)
			if err != nil {
				return err
			}
			total = total.Add(balance)
		}
		return nil
	})
	return total, err
}

func descendants(ctx context.Context, r accounting.Reader, root accounting.Account) ([]accounting.Account, error) {
	var out []accounting.Account
	queue := []uuid.UUID{root.ID}
	seen := map[uuid.UUID]struct{}{root.ID: {}}
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]
		children, err := r.ListAccounts(ctx, accounting.AccountFilter{ParentID: &parentID, IncludeInactive: true})
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

// HierarchyPath returns account names from the root down to the account itself.
func (s *Registry) HierarchyPath(ctx context.Context, id uuid.UUID) ([]string, error) {
	var names []string
	err := s.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		account, err := r.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		chain, err := ancestors(ctx, r, account, uuid.Nil)
		if err != nil {
			return err
		}
		names = make([]string, 0, len(chain))
		for i := len(chain) - 1; i >= 0; i-- {
			names = append(names, chain[i].Name)
		}
		return nil
	})
	return names, err
}

// Deactivate soft-deletes an account with no active children and a zero balance.
func (s *Registry) Deactivate(ctx context.Context, id uuid.UUID, actor string) (accounting.Account, error) {
	var before, after accounting.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		account, err := tx.LockAccount(ctx, id)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return shared.InvalidAccount("", account.Code, "account already inactive")
		}
		children, err := tx.ListAccounts(ctx, accounting.AccountFilter{ParentID: &account.ID})
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return shared.InvalidAccount("", account.Code, fmt.Sprintf("%d active child accounts", len(children)))
		}
		if !account.CurrentBalance.IsZero() {
			return shared.InvalidAccount("", account.Code, "balance is "+account.CurrentBalance.StringFixed(2))
		}
		before = account
		account.IsActive = false
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		after, err = tx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return accounting.Account{}, err
	}
	s.recorder.Record(ctx, audit.Event{
		Actor:    actor,
		Action:   "account.deactivate",
		Entity:   "account",
		EntityID: id.String(),
		At:       s.now(),
		Before:   before,
		After:    after,
	})
	return after, nil
}

// Move reparents an account. A nil parent makes it a root.
func (s *Registry) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, actor string) (accounting.Account, error) {
	var before, after accounting.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		account, err := tx.LockAccount(ctx, id)
		if err != nil {
			return err
		}
		before = account
		level := 1
		if parentID != nil {
			parent, err := s.checkParent(ctx, tx, account, *parentID)
			if err != nil {
				return err
			}
			level = parent.Level + 1
		}
		shift := level - account.Level
		account.ParentID = parentID
		account.Level = level
		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		if shift != 0 {
			tree, err := descendants(ctx, tx, account)
			if err != nil {
				return err
			}
			for _, child := range tree {
				child.Level += shift
				if err := tx.UpdateAccount(ctx, child); err != nil {
					return err
				}
			}
		}
		after, err = tx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return accounting.Account{}, err
	}
	s.recorder.Record(ctx, audit.Event{
		Actor:    actor,
		Action:   "account.move",
		Entity:   "account",
		EntityID: id.String(),
		At:       s.now(),
		Before:   before,
		After:    after,
	})
	return after, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrAccountNotFound)
}
