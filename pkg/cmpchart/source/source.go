package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// Source loads a raw price set from a specification (filepath, tickers).
type Source interface {
	Load(ctx context.Context, spec any) (*types.RawPriceSet, error)
}

const (
	KindYAML     = "yaml"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindYahoo    = "yahoo"
)

// Kinds lists the supported source kinds.
var Kinds = []string{KindYAML, KindSQLite, KindPostgres, KindYahoo}

// Options configures sources built by New.
type Options struct {
	DSN     string        // database sources
	Range   string        // yahoo: range such as "1y", "5y", "max"
	Proxy   string        // yahoo: optional HTTP proxy
	Timeout time.Duration // yahoo: per-request timeout
}

// New returns the source for kind. "json" is an alias for yaml since the
// YAML parser reads JSON documents too.
func New(kind string, opts Options) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindYAML, "yml", "json", "file", "":
		return YAMLSource{}, nil
	case KindSQLite, "sqlite3":
		return &DBSource{Driver: KindSQLite, DSN: opts.DSN}, nil
	case KindPostgres, "postgresql", "pg":
		return &DBSource{Driver: KindPostgres, DSN: opts.DSN}, nil
	case KindYahoo:
		f, err := fetch.NewYahooFetcher(opts.Proxy, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return &YahooSource{Fetcher: f, Window: fetch.Window{Range: opts.Range}}, nil
	default:
		return nil, fmt.Errorf("unsupported source: %s (available: %s)", kind, strings.Join(Kinds, ", "))
	}
}

// tickersFromSpec accepts nil, a string (comma separated) or []string.
func tickersFromSpec(spec any) ([]string, error) {
	var raw []string
	switch s := spec.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(s, ",")
	case []string:
		raw = s
	default:
		return nil, fmt.Errorf("expected tickers, got %T", spec)
	}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
