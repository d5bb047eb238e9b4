package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/komsit37/cmpchart/pkg/cmpchart/chart"
	"github.com/komsit37/cmpchart/pkg/cmpchart/enrich"
)

// DefaultTarget is the id of the element the chart mounts into.
const DefaultTarget = "stockchart"

// Renderer renders an assembled chart configuration to an output writer.
type Renderer interface {
	Render(w io.Writer, cfg chart.Config, opts RenderOptions) error
}

type RenderOptions struct {
	Target      string // html: mount point id
	Title       string
	Columns     []string // table, md
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

func (o RenderOptions) target() string {
	if strings.TrimSpace(o.Target) == "" {
		return DefaultTarget
	}
	return o.Target
}

func (o RenderOptions) title() string {
	if strings.TrimSpace(o.Title) == "" {
		return "Relative performance"
	}
	return o.Title
}

const (
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatMarkdown = "md"
)

// Formats lists the supported output formats.
var Formats = []string{FormatHTML, FormatJSON, FormatTable, FormatMarkdown}

// New returns the renderer for format. quotes may be nil; only the table
// and markdown renderers use it.
func New(format string, quotes enrich.QuoteService) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatHTML, "":
		return NewHTMLRenderer(), nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	case FormatTable:
		return &TableRenderer{Quotes: quotes}, nil
	case FormatMarkdown, "markdown":
		return &MarkdownRenderer{Quotes: quotes}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (available: %s)", format, strings.Join(Formats, ", "))
	}
}
