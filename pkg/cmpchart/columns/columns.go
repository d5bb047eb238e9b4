package columns

import (
	"context"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/komsit37/cmpchart/pkg/cmpchart/dates"
	"github.com/komsit37/cmpchart/pkg/cmpchart/enrich"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// Row is one series as seen by the table renderer.
type Row struct {
	Ticker string
	Points []types.Point
}

// Services provides access to external services for resolvers.
type Services struct {
	Quotes enrich.QuoteService
}

// Resolver converts a row into a string value for a given column.
type Resolver func(ctx context.Context, r Row, s Services) (string, error)

// Registry maps column keys to resolvers.
var Registry = map[string]Resolver{}

// Numeric lists columns rendered right-aligned.
var Numeric = map[string]bool{"points": true, "first": true, "last": true, "price": true, "chg%": true}

func init() {
	Registry["sym"] = func(_ context.Context, r Row, _ Services) (string, error) {
		return r.Ticker, nil
	}
	Registry["points"] = func(_ context.Context, r Row, _ Services) (string, error) {
		return humanize.Comma(int64(len(r.Points))), nil
	}
	Registry["from"] = func(_ context.Context, r Row, _ Services) (string, error) {
		if len(r.Points) == 0 {
			return "", nil
		}
		return formatDate(r.Points[0].Time), nil
	}
	Registry["to"] = func(_ context.Context, r Row, _ Services) (string, error) {
		if len(r.Points) == 0 {
			return "", nil
		}
		return formatDate(r.Points[len(r.Points)-1].Time), nil
	}
	Registry["first"] = func(_ context.Context, r Row, _ Services) (string, error) {
		if len(r.Points) == 0 {
			return "", nil
		}
		return FormatPrice(r.Points[0].Price), nil
	}
	Registry["last"] = func(_ context.Context, r Row, _ Services) (string, error) {
		if len(r.Points) == 0 {
			return "", nil
		}
		return FormatPrice(r.Points[len(r.Points)-1].Price), nil
	}
	// quote columns degrade to blanks when quotes are off or fail
	Registry["name"] = func(ctx context.Context, r Row, s Services) (string, error) {
		q, ok := quote(ctx, r, s)
		if !ok {
			return "", nil
		}
		return q.Name, nil
	}
	Registry["price"] = func(ctx context.Context, r Row, s Services) (string, error) {
		q, ok := quote(ctx, r, s)
		if !ok {
			return "", nil
		}
		return q.Price, nil
	}
	Registry["chg%"] = func(ctx context.Context, r Row, s Services) (string, error) {
		q, ok := quote(ctx, r, s)
		if !ok {
			return "", nil
		}
		return q.ChgFmt, nil
	}
}

func quote(ctx context.Context, r Row, s Services) (types.Quote, bool) {
	if s.Quotes == nil {
		return types.Quote{}, false
	}
	q, err := s.Quotes.Get(ctx, r.Ticker)
	if err != nil {
		return types.Quote{}, false
	}
	return q, true
}

// Compute resolves requested columns, expanding set names and dropping
// duplicates. With nothing requested the "series" set is used, plus the
// "quote" set when withQuotes is true.
func Compute(requested []string, withQuotes bool) ([]string, error) {
	if len(requested) == 0 {
		names := []string{"series"}
		if withQuotes {
			names = append(names, "quote")
		}
		return ExpandSets(names)
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(requested))
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range requested {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if set, ok := Sets[c]; ok {
			for _, sc := range set {
				add(sc)
			}
			continue
		}
		if _, ok := Registry[c]; !ok {
			return nil, &UnknownColumnError{Name: c, Available: Available()}
		}
		add(c)
	}
	return out, nil
}

// NeedsQuotes reports whether any column is backed by the quote service.
func NeedsQuotes(cols []string) bool {
	for _, c := range cols {
		for _, q := range Sets["quote"] {
			if c == q {
				return true
			}
		}
	}
	return false
}

// RenderValue calls the resolver for the given column.
func RenderValue(ctx context.Context, col string, r Row, s Services) (string, error) {
	if res, ok := Registry[col]; ok {
		return res(ctx, r, s)
	}
	return "", &UnknownColumnError{Name: col, Available: Available()}
}

// UnknownColumnError reports a column with no resolver.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return "unknown column: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}

// Available lists registered columns, sorted.
func Available() []string {
	keys := make([]string, 0, len(Registry))
	for k := range Registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatPrice formats a price with two decimals and thousands separators.
func FormatPrice(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func formatDate(ms int64) string {
	return dates.FromMillis(ms).Format("2006-01-02")
}
