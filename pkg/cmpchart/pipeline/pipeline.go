package pipeline

import (
	"context"
	"io"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
	"github.com/komsit37/cmpchart/pkg/cmpchart/filter"
	"github.com/komsit37/cmpchart/pkg/cmpchart/render"
	"github.com/komsit37/cmpchart/pkg/cmpchart/series"
	"github.com/komsit37/cmpchart/pkg/cmpchart/source"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

type Runner struct {
	Source   source.Source
	Renderer render.Renderer
	Writer   io.Writer
}

type ExecuteOptions struct {
	Filter filter.Filter
	Render render.RenderOptions
}

// Execute loads spec, keeps the tickers matching the filter and renders
// the assembled chart.
func (r *Runner) Execute(ctx context.Context, spec any, opts ExecuteOptions) error {
	raw, err := r.Source.Load(ctx, spec)
	if err != nil {
		return err
	}
	cfg := Build(raw, opts.Filter)
	return r.Renderer.Render(r.Writer, cfg, opts.Render)
}

// Build filters raw and assembles the chart configuration. A nil filter
// keeps every ticker.
func Build(raw *types.RawPriceSet, f filter.Filter) chart.Config {
	if f != nil {
		raw = filter.Apply(raw, f)
	}
	return chart.Assemble(series.Build(raw))
}
