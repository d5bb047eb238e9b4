package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/komsit37/cmpchart/pkg/cmpchart/columns"
	"github.com/komsit37/cmpchart/pkg/cmpchart/config"
	"github.com/komsit37/cmpchart/pkg/cmpchart/enrich"
	"github.com/komsit37/cmpchart/pkg/cmpchart/filter"
	"github.com/komsit37/cmpchart/pkg/cmpchart/pipeline"
	"github.com/komsit37/cmpchart/pkg/cmpchart/render"
)

func (a *app) renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file.yaml|dir|tickers...>",
		Short: "Render the comparison chart as html, json, table or md",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			spec, err := specFromArgs(cfg.Source, args)
			if err != nil {
				return err
			}
			src, err := a.source()
			if err != nil {
				return err
			}

			wantQuotes, err := quotesWanted(cfg.Render)
			if err != nil {
				return err
			}
			var quotes enrich.QuoteService
			if wantQuotes {
				quotes = enrich.NewCacheService(enrich.NewYFService(cfg.Timeout), cfg.Quotes.TTL, cfg.Quotes.Size)
			}
			rend, err := render.New(cfg.Render.Format, quotes)
			if err != nil {
				return err
			}
			f, err := filter.Parse(cfg.Render.Only)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			width, tty := terminalWidth()
			if cfg.Render.Out != "" {
				out, err := os.Create(cfg.Render.Out)
				if err != nil {
					return fmt.Errorf("create %s: %w", cfg.Render.Out, err)
				}
				defer out.Close()
				w, tty = out, false
			}

			r := &pipeline.Runner{Source: src, Renderer: rend, Writer: w}
			err = r.Execute(cmd.Context(), spec, pipeline.ExecuteOptions{
				Filter: f,
				Render: render.RenderOptions{
					Target:      cfg.Render.Target,
					Title:       cfg.Render.Title,
					Columns:     cfg.Render.Columns,
					Color:       tty,
					PrettyJSON:  cfg.Render.Pretty,
					MaxColWidth: colWidth(width),
				},
			})
			if err != nil {
				return err
			}
			if cfg.Render.Out != "" {
				log.Printf("[INFO] wrote %s", cfg.Render.Out)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringP("format", "f", render.FormatHTML, "output format: html, json, table, md")
	fs.String("only", "", "ticker filter: AAPL,MSFT | BRK* | /regex/ | substring")
	fs.StringP("out", "o", "", "write output to file instead of stdout")
	fs.Bool("quotes", false, "add live quote columns (table, md)")
	fs.StringSliceP("columns", "c", nil, "columns or column sets for table and md output")
	fs.String("title", "", "page or document title")
	fs.String("target", render.DefaultTarget, "html element id the chart mounts into")
	fs.Bool("pretty", false, "indent json output")
	a.bind(fs, map[string]string{
		"format": "render.format", "only": "render.only", "out": "render.out",
		"quotes": "render.quotes", "columns": "render.columns", "title": "render.title",
		"target": "render.target", "pretty": "render.pretty",
	})
	return cmd
}

// quotesWanted reports whether live quotes are needed: asked for with
// --quotes, or implied by a quote column in --columns.
func quotesWanted(rc config.RenderConfig) (bool, error) {
	if rc.Quotes {
		return true, nil
	}
	if len(rc.Columns) == 0 {
		return false, nil
	}
	cols, err := columns.Compute(rc.Columns, false)
	if err != nil {
		return false, err
	}
	return columns.NeedsQuotes(cols), nil
}

// colWidth caps table columns to a quarter of the terminal, 40 when the
// width is unknown.
func colWidth(termWidth int) int {
	if termWidth <= 0 {
		return 40
	}
	return max(12, termWidth/4)
}
