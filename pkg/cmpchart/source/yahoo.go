package source

import (
	"context"
	"fmt"
	"log"

	"github.com/komsit37/cmpchart/pkg/cmpchart/dates"
	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// YahooSource downloads daily bars for the tickers in spec and charts the
// adjusted close.
type YahooSource struct {
	Fetcher fetch.Fetcher
	Window  fetch.Window
	// SkipErrors drops tickers that fail to download instead of failing
	// the whole load.
	SkipErrors bool
}

func (s *YahooSource) Load(ctx context.Context, spec any) (*types.RawPriceSet, error) {
	tickers, err := tickersFromSpec(spec)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("yahoo source needs at least one ticker")
	}
	raw := types.NewRawPriceSet(len(tickers))
	for _, t := range tickers {
		bars, err := s.Fetcher.Daily(ctx, t, s.Window)
		if err != nil {
			if s.SkipErrors {
				log.Printf("[WARN] skipping %s: %v", t, err)
				continue
			}
			return nil, err
		}
		points := make([]types.Point, 0, len(bars))
		for _, b := range bars {
			points = append(points, types.Point{Time: dates.Millis(dates.Day(b.Time)), Price: b.AdjClose})
		}
		raw.Set(t, points)
	}
	return raw, nil
}
