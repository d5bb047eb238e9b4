package types

import (
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/cmpchart/pkg/cmpchart/dates"
)

// Point is a single (timestamp, price) observation. Time is epoch
// milliseconds, the unit Highstock expects on a datetime axis.
type Point struct {
	Time  int64
	Price float64
}

// MarshalJSON encodes the point as the [t, price] pair Highstock consumes.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Time, p.Price})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var pair []json.Number
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point: expected [time, price], got %d values", len(pair))
	}
	t, err := pair[0].Int64()
	if err != nil {
		f, ferr := pair[0].Float64()
		if ferr != nil {
			return fmt.Errorf("point time: %w", err)
		}
		t = int64(f)
	}
	price, err := pair[1].Float64()
	if err != nil {
		return fmt.Errorf("point price: %w", err)
	}
	p.Time, p.Price = t, price
	return nil
}

// UnmarshalYAML accepts [t, price] where t is either epoch milliseconds or
// a date string understood by dates.Parse. Unquoted eight-digit integers
// such as 20240102 are compact dates, not milliseconds.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) != 2 {
		return fmt.Errorf("line %d: point must be a [time, price] pair", value.Line)
	}
	tn, pn := value.Content[0], value.Content[1]
	switch {
	case tn.Tag == "!!int" && len(tn.Value) == 8:
		d, err := dates.Parse(tn.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", tn.Line, err)
		}
		p.Time = dates.Millis(d)
	case tn.Tag == "!!int":
		t, err := strconv.ParseInt(tn.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: point time: %w", tn.Line, err)
		}
		p.Time = t
	case tn.Tag == "!!float":
		f, err := strconv.ParseFloat(tn.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: point time: %w", tn.Line, err)
		}
		p.Time = int64(f)
	default:
		d, err := dates.Parse(tn.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", tn.Line, err)
		}
		p.Time = dates.Millis(d)
	}
	if err := pn.Decode(&p.Price); err != nil {
		return fmt.Errorf("line %d: point price: %w", pn.Line, err)
	}
	return nil
}

// RawPriceSet maps tickers to their daily series, remembering insertion
// order. The zero value is an empty set ready to use.
type RawPriceSet struct {
	order  []string
	series map[string][]Point
}

// NewRawPriceSet returns an empty set with room for n tickers.
func NewRawPriceSet(n int) *RawPriceSet {
	return &RawPriceSet{order: make([]string, 0, n), series: make(map[string][]Point, n)}
}

// Set stores points under ticker. An existing ticker keeps its position.
func (r *RawPriceSet) Set(ticker string, points []Point) {
	if r.series == nil {
		r.series = make(map[string][]Point)
	}
	if _, ok := r.series[ticker]; !ok {
		r.order = append(r.order, ticker)
	}
	r.series[ticker] = points
}

func (r *RawPriceSet) Get(ticker string) ([]Point, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.series[ticker]
	return p, ok
}

func (r *RawPriceSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Tickers returns a copy of the tickers in insertion order.
func (r *RawPriceSet) Tickers() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// All iterates tickers and their points in insertion order.
func (r *RawPriceSet) All() iter.Seq2[string, []Point] {
	return func(yield func(string, []Point) bool) {
		if r == nil {
			return
		}
		for _, t := range r.order {
			if !yield(t, r.series[t]) {
				return
			}
		}
	}
}

// UnmarshalYAML decodes a ticker -> points mapping keeping document order.
func (r *RawPriceSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of ticker to prices", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		var points []Point
		if err := v.Decode(&points); err != nil {
			return fmt.Errorf("%s: %w", k.Value, err)
		}
		r.Set(k.Value, points)
	}
	return nil
}

// SeriesDescriptor is one named series as handed to the chart.
type SeriesDescriptor struct {
	Name string  `json:"name"`
	Data []Point `json:"data"`
}

// Quote contains formatted and raw change values for rendering.
type Quote struct {
	Name   string
	Price  string
	ChgFmt string
	ChgRaw float64
}
