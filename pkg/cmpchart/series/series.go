// Package series turns a raw ticker -> prices mapping into the ordered
// series list a chart configuration carries.
package series

import "github.com/komsit37/cmpchart/pkg/cmpchart/types"

// Build emits one descriptor per ticker in the set's insertion order. Point
// slices are shared with raw, not copied. An empty or nil set yields an
// empty, non-nil slice.
func Build(raw *types.RawPriceSet) []types.SeriesDescriptor {
	out := make([]types.SeriesDescriptor, 0, raw.Len())
	for ticker, points := range raw.All() {
		out = append(out, types.SeriesDescriptor{Name: ticker, Data: points})
	}
	return out
}
