package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// Filter selects tickers.
type Filter interface {
	Match(ticker string) bool
}

// Parse builds a ticker filter from an expression:
// - Comma-separated tickers: "AAPL,MSFT" (case-insensitive)
// - Glob: "BRK*"
// - Regex: "/^[A-Z]{4}$/"
// - Anything else: case-insensitive substring
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return All{}, nil
	}
	if len(expr) > 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("ticker filter %q: %w", expr, err)
		}
		return Regex{re: re}, nil
	}
	if strings.Contains(expr, ",") {
		return NewSet(strings.Split(expr, ",")...), nil
	}
	if strings.ContainsAny(expr, "*?[") {
		if _, err := filepath.Match(expr, ""); err != nil {
			return nil, fmt.Errorf("ticker filter %q: %w", expr, err)
		}
		return Glob{pattern: strings.ToUpper(expr)}, nil
	}
	return Substr{needle: strings.ToUpper(expr)}, nil
}

// Apply returns the tickers of raw matched by f, in raw's order. A nil
// filter keeps everything.
func Apply(raw *types.RawPriceSet, f Filter) *types.RawPriceSet {
	out := types.NewRawPriceSet(raw.Len())
	for ticker, points := range raw.All() {
		if f == nil || f.Match(ticker) {
			out.Set(ticker, points)
		}
	}
	return out
}

type All struct{}

func (All) Match(string) bool { return true }
func (All) String() string    { return "all" }

// Set matches tickers from a fixed list.
type Set struct{ tickers map[string]struct{} }

func NewSet(tickers ...string) Set {
	m := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			m[t] = struct{}{}
		}
	}
	return Set{tickers: m}
}

func (s Set) Match(ticker string) bool {
	_, ok := s.tickers[strings.ToUpper(ticker)]
	return ok
}

func (s Set) String() string { return fmt.Sprintf("set:%d", len(s.tickers)) }

type Glob struct{ pattern string }

func (g Glob) Match(ticker string) bool {
	ok, _ := filepath.Match(g.pattern, strings.ToUpper(ticker))
	return ok
}

func (g Glob) String() string { return "glob:" + g.pattern }

type Regex struct{ re *regexp.Regexp }

func (r Regex) Match(ticker string) bool { return r.re.MatchString(ticker) }
func (r Regex) String() string           { return "regex:" + r.re.String() }

// Substr matches if the ticker contains needle, case-insensitively.
type Substr struct{ needle string }

func (s Substr) Match(ticker string) bool {
	return strings.Contains(strings.ToUpper(ticker), s.needle)
}

func (s Substr) String() string { return "substr:" + s.needle }
