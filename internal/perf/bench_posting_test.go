package perf

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/journals"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/reports"
)

type bench struct {
	store  *accounting.MemoryStore
	engine *journals.Engine
	gen    *reports.Generator
	cash   accounting.Account
	sales  accounting.Account
}

func newBench(tb testing.TB) bench {
	tb.Helper()
	ctx := context.Background()
	store := accounting.NewMemoryStore()
	registry := accounts.NewRegistry(store, nil)
	manager := periods.NewManager(store, nil)
	if _, err := manager.CreatePeriod(ctx, periods.CreatePeriodInput{
		Name:      "FY2024",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		tb.Fatalf("create period: %v", err)
	}
	cash, err := registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "1010", Name: "Cash", Type: accounting.AccountTypeAsset})
	if err != nil {
		tb.Fatalf("create cash: %v", err)
	}
	sales, err := registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "4010", Name: "Sales", Type: accounting.AccountTypeRevenue})
	if err != nil {
		tb.Fatalf("create sales: %v", err)
	}
	return bench{
		store:  store,
		engine: journals.NewEngine(store, manager, nil, journals.WithBackoff(0)),
		gen:    reports.NewGenerator(store),
		cash:   cash,
		sales:  sales,
	}
}

func (b bench) postSale(tb testing.TB, day int) {
	tb.Helper()
	ctx := context.Background()
	amount := decimal.NewFromInt(int64(100 + day))
	entry, err := b.engine.CreateDraft(ctx, journals.DraftInput{
		PostingDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day%365),
		Lines: []journals.LineInput{
			{AccountID: b.cash.ID, Debit: amount, Credit: decimal.Zero},
			{AccountID: b.sales.ID, Debit: decimal.Zero, Credit: amount},
		},
	})
	if err != nil {
		tb.Fatalf("create draft: %v", err)
	}
	if _, err := b.engine.Post(ctx, entry.ID, "bench"); err != nil {
		tb.Fatalf("post: %v", err)
	}
}

func BenchmarkPost(b *testing.B) {
	l := newBench(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.postSale(b, i)
	}
}

func BenchmarkTrialBalance(b *testing.B) {
	l := newBench(b)
	for i := 0; i < 500; i++ {
		l.postSale(b, i)
	}
	asOf := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.gen.TrialBalance(context.Background(), asOf); err != nil {
			b.Fatalf("trial balance: %v", err)
		}
	}
}

func TestPostingLatencyTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("latency sampling skipped in short mode")
	}
	l := newBench(t)
	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Now()
		l.postSale(t, i)
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 100*time.Millisecond {
		t.Fatalf("posting latency regression: p95=%s threshold=100ms", p95)
	}

	tb, err := l.gen.TrialBalance(context.Background(), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	if !tb.IsBalanced {
		t.Fatalf("expected balanced trial balance after %d postings", len(samples))
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
