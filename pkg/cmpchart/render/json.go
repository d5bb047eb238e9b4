package render

import (
	"encoding/json"
	"io"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
)

// JSONRenderer writes the chart options object as JSON, ready for
// Highcharts.stockChart(target, options).
type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Render(w io.Writer, cfg chart.Config, opts RenderOptions) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(cfg)
}
