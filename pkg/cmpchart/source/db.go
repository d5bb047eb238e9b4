package source

import (
	"context"

	"github.com/komsit37/cmpchart/pkg/cmpchart/store"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// DBSource reads the symbol/daily_price tables. Spec is nil (all symbols),
// a comma separated string, or a []string of tickers.
type DBSource struct {
	DSN    string
	Driver string
}

func (s *DBSource) Load(ctx context.Context, spec any) (*types.RawPriceSet, error) {
	tickers, err := tickersFromSpec(spec)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(ctx, tickers)
}
