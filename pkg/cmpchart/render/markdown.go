package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
	"github.com/komsit37/cmpchart/pkg/cmpchart/columns"
	"github.com/komsit37/cmpchart/pkg/cmpchart/enrich"
)

// MarkdownRenderer writes a markdown summary of the chart. With Color set
// the markdown is rendered for the terminal by glamour; otherwise the
// plain markdown is written.
type MarkdownRenderer struct{ Quotes enrich.QuoteService }

func (r *MarkdownRenderer) Render(w io.Writer, cfg chart.Config, opts RenderOptions) error {
	md, err := r.markdown(cfg, opts)
	if err != nil {
		return err
	}
	if opts.Color {
		out, err := glamour.Render(md, "dark")
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		md = out
	}
	_, err = io.WriteString(w, md)
	return err
}

func (r *MarkdownRenderer) markdown(cfg chart.Config, opts RenderOptions) (string, error) {
	cols, err := columns.Compute(opts.Columns, r.Quotes != nil)
	if err != nil {
		return "", err
	}
	svc := columns.Services{Quotes: r.Quotes}
	ctx := context.Background()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.title())
	fmt.Fprintf(&b, "Showing **%s** on load, each series as %s change from its first visible point.\n\n",
		cfg.RangeSelector.Selected, cfg.PlotOptions.Series.Compare)

	if len(cfg.Series) == 0 {
		b.WriteString("_No series._\n")
		return b.String(), nil
	}

	hdr := make([]string, len(cols))
	sep := make([]string, len(cols))
	for i, c := range cols {
		hdr[i] = strings.ToUpper(c)
		sep[i] = "---"
		if columns.Numeric[c] {
			sep[i] = "--:"
		}
	}
	b.WriteString("| " + strings.Join(hdr, " | ") + " |\n")
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, s := range cfg.Series {
		row := columns.Row{Ticker: s.Name, Points: s.Data}
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, err := columns.RenderValue(ctx, c, row, svc)
			if err != nil {
				return "", err
			}
			cells[i] = strings.ReplaceAll(v, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String(), nil
}
