package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "prices.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestEnsureSymbolIsIdempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	a, err := s.EnsureSymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("EnsureSymbol: %v", err)
	}
	m, _ := s.EnsureSymbol(ctx, "MSFT")
	again, _ := s.EnsureSymbol(ctx, "AAPL")
	if a != again || a == m {
		t.Fatalf("ids: AAPL=%d again=%d MSFT=%d", a, again, m)
	}
	syms, err := s.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	want := []Symbol{{ID: a, Ticker: "AAPL"}, {ID: m, Ticker: "MSFT"}}
	if diff := cmp.Diff(want, syms); diff != "" {
		t.Errorf("Symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertDailySkipsDuplicates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id, _ := s.EnsureSymbol(ctx, "AAPL")

	bars := []fetch.Bar{
		{Time: day(2), Close: 185.64, AdjClose: 185.0, Volume: 1e6},
		{Time: day(3), Close: 184.25, AdjClose: 183.5, Volume: 2e6},
	}
	n, err := s.InsertDaily(ctx, DefaultVendorID, id, bars)
	if err != nil || n != 2 {
		t.Fatalf("InsertDaily = %d, %v; want 2", n, err)
	}
	more := append(bars, fetch.Bar{Time: day(4), Close: 181.91, AdjClose: 181.0})
	n, err = s.InsertDaily(ctx, DefaultVendorID, id, more)
	if err != nil || n != 1 {
		t.Fatalf("second InsertDaily = %d, %v; want 1", n, err)
	}

	last, ok, err := s.LastPriceTime(ctx, id)
	if err != nil || !ok || !last.Equal(day(4)) {
		t.Errorf("LastPriceTime = %v, %v, %v", last, ok, err)
	}

	got, err := s.Series(ctx, id)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	want := []types.Point{
		{Time: day(2).UnixMilli(), Price: 185.0},
		{Time: day(3).UnixMilli(), Price: 183.5},
		{Time: day(4).UnixMilli(), Price: 181.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertDailyKeysByDay(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id, _ := s.EnsureSymbol(ctx, "AAPL")

	open := day(2).Add(14*time.Hour + 30*time.Minute)
	live := day(2).Add(17*time.Hour + 3*time.Minute)
	n, err := s.InsertDaily(ctx, DefaultVendorID, id, []fetch.Bar{{Time: live, Close: 185, AdjClose: 185}})
	if err != nil || n != 1 {
		t.Fatalf("InsertDaily = %d, %v; want 1", n, err)
	}
	n, err = s.InsertDaily(ctx, DefaultVendorID, id, []fetch.Bar{{Time: open, Close: 180, AdjClose: 180}})
	if err != nil || n != 0 {
		t.Fatalf("same-day InsertDaily = %d, %v; want 0", n, err)
	}

	got, err := s.Series(ctx, id)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	want := []types.Point{{Time: day(2).UnixMilli(), Price: 185}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Series mismatch (-want +got):\n%s", diff)
	}
	if last, _, _ := s.LastPriceTime(ctx, id); !last.Equal(day(2)) {
		t.Errorf("LastPriceTime = %v, want %v", last, day(2))
	}
}

func TestLastPriceTimeEmpty(t *testing.T) {
	s := openTemp(t)
	id, _ := s.EnsureSymbol(context.Background(), "NEW")
	if _, ok, err := s.LastPriceTime(context.Background(), id); err != nil || ok {
		t.Errorf("LastPriceTime on empty symbol = %v, %v", ok, err)
	}
}

func TestLoadOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, tk := range []string{"MSFT", "AAPL", "GOOG"} {
		id, _ := s.EnsureSymbol(ctx, tk)
		if _, err := s.InsertDaily(ctx, DefaultVendorID, id, []fetch.Bar{{Time: day(2), Close: 1, AdjClose: 1}}); err != nil {
			t.Fatalf("InsertDaily %s: %v", tk, err)
		}
	}

	all, err := s.Load(ctx, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"MSFT", "AAPL", "GOOG"}, all.Tickers()); diff != "" {
		t.Errorf("Load(nil) order (-want +got):\n%s", diff)
	}

	some, err := s.Load(ctx, []string{"GOOG", "MSFT"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"GOOG", "MSFT"}, some.Tickers()); diff != "" {
		t.Errorf("Load(tickers) order (-want +got):\n%s", diff)
	}

	if _, err := s.Load(ctx, []string{"NOPE"}); err == nil {
		t.Error("expected error for unknown ticker")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &Store{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("rebind = %q", got)
	}
}
