package chart

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/komsit37/cmpchart/pkg/cmpchart/series"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

var ignoreFormatter = cmpopts.IgnoreFields(AxisLabels{}, "Formatter")

func TestFormatAxisLabel(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{5, " + 5%"},
		{-3, "-3%"},
		{0, "0%"},
		{math.Copysign(0, -1), "0%"},
		{12.5, " + 12.5%"},
		{-0.25, "-0.25%"},
		{100, " + 100%"},
	}
	for _, tc := range testCases {
		if got := FormatAxisLabel(tc.in); got != tc.want {
			t.Errorf("FormatAxisLabel(%v) = %q, want %q", tc.in, got, tc.want)
		}
		// repeated calls must agree
		if again := FormatAxisLabel(tc.in); again != FormatAxisLabel(tc.in) {
			t.Errorf("FormatAxisLabel(%v) not deterministic", tc.in)
		}
	}
}

func TestAssembleEmpty(t *testing.T) {
	cfg := Assemble(nil)
	if cfg.Series == nil || len(cfg.Series) != 0 {
		t.Fatalf("Series = %#v, want empty", cfg.Series)
	}
	withEmpty := Assemble([]types.SeriesDescriptor{})
	if diff := cmp.Diff(cfg, withEmpty, ignoreFormatter); diff != "" {
		t.Errorf("nil and empty series differ (-nil +empty):\n%s", diff)
	}
	if cfg.RangeSelector.Selected != 4 || cfg.RangeSelector.Selected.String() != "1y" {
		t.Errorf("Selected = %d (%s), want 4 (1y)", cfg.RangeSelector.Selected, cfg.RangeSelector.Selected)
	}
}

func TestAssembleFixedOptions(t *testing.T) {
	cfg := Assemble(nil)
	want := Config{
		RangeSelector: RangeSelector{Selected: Range1Y},
		YAxis: YAxis{
			PlotLines: []PlotLine{{Value: 0, Width: 2, Color: "silver"}},
		},
		PlotOptions: PlotOptions{Series: SeriesOptions{Compare: "percent", ShowInNavigator: true}},
		Tooltip: Tooltip{
			PointFormat:   `<span style="color:{series.color}">{series.name}</span>: <b>{point.y}</b> ({point.change}%)<br/>`,
			ValueDecimals: 2,
			Split:         true,
		},
		Series: []types.SeriesDescriptor{},
	}
	if diff := cmp.Diff(want, cfg, ignoreFormatter); diff != "" {
		t.Errorf("Assemble mismatch (-want +got):\n%s", diff)
	}
	if cfg.YAxis.Labels.Formatter == nil || cfg.YAxis.Labels.Formatter(5) != " + 5%" {
		t.Error("formatter not installed")
	}
}

func TestAssembleEndToEnd(t *testing.T) {
	const t1, t2 = 1704153600000, 1704240000000
	raw := types.NewRawPriceSet(2)
	raw.Set("AAPL", []types.Point{{Time: t1, Price: 100}, {Time: t2, Price: 105}})
	raw.Set("MSFT", []types.Point{{Time: t1, Price: 50}, {Time: t2, Price: 49}})

	cfg := Assemble(series.Build(raw))
	want := []types.SeriesDescriptor{
		{Name: "AAPL", Data: []types.Point{{Time: t1, Price: 100}, {Time: t2, Price: 105}}},
		{Name: "MSFT", Data: []types.Point{{Time: t1, Price: 50}, {Time: t2, Price: 49}}},
	}
	if diff := cmp.Diff(want, cfg.Series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
	if cfg.RangeSelector.Selected != 4 {
		t.Errorf("Selected = %d, want 4", cfg.RangeSelector.Selected)
	}
	if cfg.PlotOptions.Series.Compare != "percent" {
		t.Errorf("Compare = %q, want percent", cfg.PlotOptions.Series.Compare)
	}

	again := Assemble(series.Build(raw))
	if diff := cmp.Diff(cfg, again, ignoreFormatter); diff != "" {
		t.Errorf("Assemble not idempotent (-first +second):\n%s", diff)
	}
}

func TestConfigJSON(t *testing.T) {
	raw := types.NewRawPriceSet(1)
	raw.Set("AAPL", []types.Point{{Time: 1, Price: 100}})
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Assemble(series.Build(raw))); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b := bytes.TrimSpace(buf.Bytes())
	want := `{"rangeSelector":{"selected":4},` +
		`"yAxis":{"labels":{},"plotLines":[{"value":0,"width":2,"color":"silver"}]},` +
		`"plotOptions":{"series":{"compare":"percent","showInNavigator":true}},` +
		`"tooltip":{"pointFormat":"<span style=\"color:{series.color}\">{series.name}</span>: <b>{point.y}</b> ({point.change}%)<br/>","valueDecimals":2,"split":true},` +
		`"series":[{"name":"AAPL","data":[[1,100]]}]}`
	if string(b) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", b, want)
	}
}

func TestRangePresetString(t *testing.T) {
	if got := RangePreset(9).String(); got != "RangePreset(9)" {
		t.Errorf("String() = %q", got)
	}
	if RangeAll.String() != "All" {
		t.Errorf("RangeAll = %q", RangeAll.String())
	}
}
