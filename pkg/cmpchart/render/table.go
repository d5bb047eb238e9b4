package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
	"github.com/komsit37/cmpchart/pkg/cmpchart/columns"
	"github.com/komsit37/cmpchart/pkg/cmpchart/enrich"
)

// TableRenderer prints one row per chart series. Quote columns are
// filled when Quotes is set.
type TableRenderer struct{ Quotes enrich.QuoteService }

func NewTableRenderer(quotes enrich.QuoteService) *TableRenderer {
	return &TableRenderer{Quotes: quotes}
}

func (r *TableRenderer) Render(w io.Writer, cfg chart.Config, opts RenderOptions) error {
	cols, err := columns.Compute(opts.Columns, r.Quotes != nil)
	if err != nil {
		return err
	}
	svc := columns.Services{Quotes: r.Quotes}
	ctx := context.Background()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false

	hdr := make(table.Row, len(cols))
	for i, c := range cols {
		hdr[i] = strings.ToUpper(c)
	}
	tw.AppendHeader(hdr)

	// wrap text to MaxColWidth (default 40), no truncation
	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		cc := table.ColumnConfig{Number: i + 1, WidthMax: maxWidth}
		if columns.Numeric[c] {
			cc.Align = text.AlignRight
			cc.AlignHeader = text.AlignRight
		}
		cfgs = append(cfgs, cc)
	}
	tw.SetColumnConfigs(cfgs)

	for _, s := range cfg.Series {
		rowData := columns.Row{Ticker: s.Name, Points: s.Data}
		var paint text.Colors
		if opts.Color && r.Quotes != nil && columns.NeedsQuotes(cols) {
			if q, err := r.Quotes.Get(ctx, s.Name); err == nil {
				paint = changeColors(q.ChgRaw)
			}
		}
		row := make(table.Row, len(cols))
		for i, c := range cols {
			v, err := columns.RenderValue(ctx, c, rowData, svc)
			if err != nil {
				return fmt.Errorf("%s %s: %w", s.Name, c, err)
			}
			if paint != nil && v != "" && (c == "price" || c == "chg%") {
				v = paint.Sprint(v)
			}
			row[i] = v
		}
		tw.AppendRow(row)
	}

	caption := fmt.Sprintf("range %s · compare %s", cfg.RangeSelector.Selected, cfg.PlotOptions.Series.Compare)
	tw.SetCaption(caption)
	tw.Render()
	return nil
}

// changeColors picks green for a gain and red for a loss; nil when flat.
func changeColors(chg float64) text.Colors {
	switch {
	case chg > 0:
		return text.Colors{text.FgGreen}
	case chg < 0:
		return text.Colors{text.FgRed}
	}
	return nil
}
