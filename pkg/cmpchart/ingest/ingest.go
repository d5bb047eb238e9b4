// Package ingest pulls daily bars from a Fetcher into the price store.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/komsit37/cmpchart/pkg/cmpchart/dates"
	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/store"
)

// DefaultDays is the window length used when no start date is given.
const DefaultDays = 30

// Store is the subset of *store.Store ingest writes through.
type Store interface {
	EnsureSymbol(ctx context.Context, ticker string) (int64, error)
	Symbols(ctx context.Context) ([]store.Symbol, error)
	InsertDaily(ctx context.Context, vendorID, symbolID int64, bars []fetch.Bar) (int, error)
	LastPriceTime(ctx context.Context, symbolID int64) (time.Time, bool, error)
}

type Options struct {
	Tickers  []string // empty means every stored symbol
	Start    string   // any dates.Layouts format; empty resumes or goes back DefaultDays
	End      string   // empty means today
	VendorID int64
	Now      func() time.Time
}

// Result is the outcome for one ticker.
type Result struct {
	Ticker   string
	Inserted int
	Skipped  bool // already up to date
	Err      error
}

// Run fetches [start, end) for each ticker and stores the bars of days that
// have closed, one row per trading day. Per-ticker
// failures are logged and reported in the results; only bad options or
// store-level errors abort the run.
func Run(ctx context.Context, st Store, f fetch.Fetcher, opts Options) ([]Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	vendor := opts.VendorID
	if vendor == 0 {
		vendor = store.DefaultVendorID
	}

	today := dates.Day(now())
	end := today
	if opts.End != "" {
		t, err := dates.Parse(opts.End)
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		end = t
	}
	var start time.Time
	explicitStart := opts.Start != ""
	if explicitStart {
		t, err := dates.Parse(opts.Start)
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		start = t
	} else {
		start = end.AddDate(0, 0, -DefaultDays)
	}

	log.Printf("[INFO] ingesting daily prices from %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	if !end.After(start) {
		log.Println("[INFO] daily_price already up-to-date")
		return nil, nil
	}

	syms, err := symbols(ctx, st, opts.Tickers)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(syms))
	for _, sym := range syms {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := Result{Ticker: sym.Ticker}
		from := start
		if !explicitStart {
			// resume after the newest stored bar
			last, ok, err := st.LastPriceTime(ctx, sym.ID)
			if err != nil {
				return results, fmt.Errorf("%s: %w", sym.Ticker, err)
			}
			if ok && !last.Before(from) {
				from = dates.Day(last).AddDate(0, 0, 1)
			}
		}
		if !end.After(from) {
			res.Skipped = true
			results = append(results, res)
			continue
		}

		bars, err := f.Daily(ctx, sym.Ticker, fetch.Window{From: from, To: end})
		if err != nil {
			log.Printf("[WARN] fetch %s: %v", sym.Ticker, err)
			res.Err = err
			results = append(results, res)
			continue
		}
		n, err := st.InsertDaily(ctx, vendor, sym.ID, completeDays(bars, from, end, today))
		if err != nil {
			log.Printf("[WARN] store %s: %v", sym.Ticker, err)
			res.Err = err
			results = append(results, res)
			continue
		}
		log.Printf("[INFO] %s: %d new bars", sym.Ticker, n)
		res.Inserted = n
		results = append(results, res)
	}
	return results, nil
}

// completeDays keeps bars whose UTC day lies in [from, end) and before
// today. Today's session may still be trading, so its bar is left for a
// later run.
func completeDays(bars []fetch.Bar, from, end, today time.Time) []fetch.Bar {
	out := make([]fetch.Bar, 0, len(bars))
	for _, b := range bars {
		d := dates.Day(b.Time)
		if d.Before(from) || !d.Before(end) || !d.Before(today) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// symbols resolves tickers to stored symbols, registering unknown ones.
// With no tickers every stored symbol is returned.
func symbols(ctx context.Context, st Store, tickers []string) ([]store.Symbol, error) {
	if len(tickers) == 0 {
		syms, err := st.Symbols(ctx)
		if err != nil {
			return nil, err
		}
		if len(syms) == 0 {
			log.Println("[WARN] no symbols stored; pass tickers to register them")
		}
		return syms, nil
	}
	out := make([]store.Symbol, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		id, err := st.EnsureSymbol(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Symbol{ID: id, Ticker: t})
	}
	return out, nil
}

// Summary totals inserted rows and counts failures.
func Summary(results []Result) (inserted, failed int) {
	for _, r := range results {
		inserted += r.Inserted
		if r.Err != nil {
			failed++
		}
	}
	return inserted, failed
}
