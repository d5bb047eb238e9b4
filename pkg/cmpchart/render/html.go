package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
)

const HighstockURL = "https://code.highcharts.com/stock/highstock.js"

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
</head>
<body>
<div id="{{.Target}}" style="height: 600px; min-width: 310px"></div>
<script>
(function () {
  var options = {{.Options}};
  options.yAxis.labels.formatter = {{.Formatter}};
  Highcharts.stockChart({{.Target}}, options);
})();
</script>
</body>
</html>
`))

type pageData struct {
	Title     string
	ScriptURL string
	Target    string
	Options   template.JS
	Formatter template.JS
}

// HTMLRenderer writes a standalone page that mounts the chart into the
// target element.
type HTMLRenderer struct {
	ScriptURL string
}

func NewHTMLRenderer() *HTMLRenderer { return &HTMLRenderer{ScriptURL: HighstockURL} }

func (r *HTMLRenderer) Render(w io.Writer, cfg chart.Config, opts RenderOptions) error {
	// json.Marshal escapes <, > and & so the options are safe inside <script>.
	options, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode chart options: %w", err)
	}
	script := r.ScriptURL
	if script == "" {
		script = HighstockURL
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, pageData{
		Title:     opts.title(),
		ScriptURL: script,
		Target:    opts.target(),
		Options:   template.JS(options),
		Formatter: template.JS(chart.FormatterJS),
	}); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
