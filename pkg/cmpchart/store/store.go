// Package store persists daily prices in a symbol/daily_price schema on
// SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/komsit37/cmpchart/pkg/cmpchart/dates"
	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultVendorID identifies Yahoo Finance as the data vendor.
	DefaultVendorID = 1
)

// Symbol is a row of the symbol table.
type Symbol struct {
	ID     int64
	Ticker string
}

// Store wraps a database handle for price reads and writes.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

// Open connects to dsn with driver ("sqlite" or "postgres") and migrates
// the schema.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	case "sqlite3":
		driver = DriverSQLite
	case "postgresql", "pg":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[INFO] %s store opened", driver)
	return s, nil
}

func (s *Store) migrate() error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	num := "REAL"
	if s.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		num = "DOUBLE PRECISION"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS symbol (
			id           ` + id + `,
			ticker       TEXT NOT NULL UNIQUE,
			created_date BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_price (
			id                ` + id + `,
			data_vendor_id    INTEGER NOT NULL,
			symbol_id         BIGINT NOT NULL REFERENCES symbol(id),
			price_date        BIGINT NOT NULL,
			created_date      BIGINT NOT NULL,
			last_updated_date BIGINT NOT NULL,
			open_price        ` + num + `,
			high_price        ` + num + `,
			low_price         ` + num + `,
			close_price       ` + num + `,
			volume            BIGINT,
			adj_close_price   ` + num + `
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_price_symbol_date ON daily_price(symbol_id, price_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureSymbol returns the id of ticker, inserting it if needed.
func (s *Store) EnsureSymbol(ctx context.Context, ticker string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO symbol (ticker, created_date) VALUES (?, ?) ON CONFLICT (ticker) DO NOTHING`),
		ticker, time.Now().Unix()); err != nil {
		return 0, fmt.Errorf("insert symbol %s: %w", ticker, err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM symbol WHERE ticker = ?`), ticker).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup symbol %s: %w", ticker, err)
	}
	return id, nil
}

// Symbols lists all symbols in insertion (id) order.
func (s *Store) Symbols(ctx context.Context) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ticker FROM symbol ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var out []Symbol
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(&sym.ID, &sym.Ticker); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// InsertDaily stores bars for symbolID keyed by their UTC trading day,
// skipping days already present. It returns the number of rows inserted.
func (s *Store) InsertDaily(ctx context.Context, vendorID, symbolID int64, bars []fetch.Bar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO daily_price
		(data_vendor_id, symbol_id, price_date, created_date, last_updated_date,
		 open_price, high_price, low_price, close_price, volume, adj_close_price)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (symbol_id, price_date) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, b := range bars {
		res, err := stmt.ExecContext(ctx, vendorID, symbolID, dates.Millis(dates.Day(b.Time)), now, now,
			b.Open, b.High, b.Low, b.Close, int64(b.Volume), b.AdjClose)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", b.Time.Format("2006-01-02"), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// LastPriceTime reports the newest stored bar for symbolID.
func (s *Store) LastPriceTime(ctx context.Context, symbolID int64) (time.Time, bool, error) {
	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT MAX(price_date) FROM daily_price WHERE symbol_id = ?`), symbolID).Scan(&ms)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ms.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), true, nil
}

// Series returns the chartable price series for symbolID, ascending by
// date. Adjusted close is preferred, falling back to close.
func (s *Store) Series(ctx context.Context, symbolID int64) ([]types.Point, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT price_date, adj_close_price, close_price
		FROM daily_price WHERE symbol_id = ? ORDER BY price_date`), symbolID)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []types.Point
	for rows.Next() {
		var (
			ms       int64
			adj, cls decimal.NullDecimal
		)
		if err := rows.Scan(&ms, &adj, &cls); err != nil {
			return nil, err
		}
		price := cls
		if adj.Valid {
			price = adj
		}
		if !price.Valid {
			continue
		}
		out = append(out, types.Point{Time: ms, Price: price.Decimal.InexactFloat64()})
	}
	return out, rows.Err()
}

// Load reads the series of tickers, or of every symbol when tickers is
// empty, into a set ordered like tickers (or by symbol id).
func (s *Store) Load(ctx context.Context, tickers []string) (*types.RawPriceSet, error) {
	syms, err := s.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) > 0 {
		byTicker := make(map[string]Symbol, len(syms))
		for _, sym := range syms {
			byTicker[sym.Ticker] = sym
		}
		wanted := make([]Symbol, 0, len(tickers))
		for _, t := range tickers {
			sym, ok := byTicker[t]
			if !ok {
				return nil, fmt.Errorf("unknown ticker %s", t)
			}
			wanted = append(wanted, sym)
		}
		syms = wanted
	}
	raw := types.NewRawPriceSet(len(syms))
	for _, sym := range syms {
		points, err := s.Series(ctx, sym.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym.Ticker, err)
		}
		raw.Set(sym.Ticker, points)
	}
	return raw, nil
}

func (s *Store) Close() error {
	log.Printf("[INFO] closing %s store", s.driver)
	return s.db.Close()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
