// Package chart assembles the Highstock configuration for a percent
// comparison chart.
package chart

import (
	"strconv"

	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// RangePreset indexes Highstock's default stock range buttons.
type RangePreset int

const (
	Range1M RangePreset = iota
	Range3M
	Range6M
	RangeYTD
	Range1Y
	RangeAll
)

// DefaultRange is the preset active on load. It is an index into the
// renderer's button list; if that list is customised this must follow.
const DefaultRange = Range1Y

var presetNames = [...]string{"1m", "3m", "6m", "YTD", "1y", "All"}

func (p RangePreset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return "RangePreset(" + strconv.Itoa(int(p)) + ")"
	}
	return presetNames[p]
}

const (
	CompareModePercent = "percent"

	ZeroLineColor = "silver"
	ZeroLineWidth = 2

	TooltipPointFormat   = `<span style="color:{series.color}">{series.name}</span>: <b>{point.y}</b> ({point.change}%)<br/>`
	TooltipValueDecimals = 2
)

// LabelFormatter maps an axis value to its label.
type LabelFormatter func(v float64) string

// Config is the full option set handed to the renderer. JSON field names
// follow Highstock's options object.
type Config struct {
	RangeSelector RangeSelector            `json:"rangeSelector"`
	YAxis         YAxis                    `json:"yAxis"`
	PlotOptions   PlotOptions              `json:"plotOptions"`
	Tooltip       Tooltip                  `json:"tooltip"`
	Series        []types.SeriesDescriptor `json:"series"`
}

type RangeSelector struct {
	Selected RangePreset `json:"selected"`
}

type YAxis struct {
	Labels    AxisLabels `json:"labels"`
	PlotLines []PlotLine `json:"plotLines"`
}

// AxisLabels holds the label formatter. Functions have no JSON form;
// renderers install the JavaScript equivalent, see FormatterJS.
type AxisLabels struct {
	Formatter LabelFormatter `json:"-"`
}

type PlotLine struct {
	Value float64 `json:"value"`
	Width int     `json:"width"`
	Color string  `json:"color"`
}

type PlotOptions struct {
	Series SeriesOptions `json:"series"`
}

type SeriesOptions struct {
	Compare         string `json:"compare"`
	ShowInNavigator bool   `json:"showInNavigator"`
}

type Tooltip struct {
	PointFormat   string `json:"pointFormat"`
	ValueDecimals int    `json:"valueDecimals"`
	Split         bool   `json:"split"`
}

// Assemble merges the fixed option set with series. A nil series list is
// normalised to an empty one so the encoded config always carries an array.
func Assemble(series []types.SeriesDescriptor) Config {
	if series == nil {
		series = []types.SeriesDescriptor{}
	}
	return Config{
		RangeSelector: RangeSelector{Selected: DefaultRange},
		YAxis: YAxis{
			Labels: AxisLabels{Formatter: FormatAxisLabel},
			PlotLines: []PlotLine{
				{Value: 0, Width: ZeroLineWidth, Color: ZeroLineColor},
			},
		},
		PlotOptions: PlotOptions{
			Series: SeriesOptions{Compare: CompareModePercent, ShowInNavigator: true},
		},
		Tooltip: Tooltip{
			PointFormat:   TooltipPointFormat,
			ValueDecimals: TooltipValueDecimals,
			Split:         true,
		},
		Series: series,
	}
}
