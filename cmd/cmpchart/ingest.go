package main

import (
	"errors"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/komsit37/cmpchart/pkg/cmpchart/fetch"
	"github.com/komsit37/cmpchart/pkg/cmpchart/ingest"
	"github.com/komsit37/cmpchart/pkg/cmpchart/store"
)

func (a *app) ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [tickers...]",
		Short: "Download daily prices from Yahoo Finance into the database",
		Long: "Download daily prices into the symbol/daily_price tables. Without tickers every\n" +
			"stored symbol is updated. Without --start each ticker resumes after its newest\n" +
			"stored bar, looking back at most 30 days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			st, err := store.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := fetch.NewYahooFetcher(cfg.Proxy, cfg.Timeout)
			if err != nil {
				return err
			}
			results, err := ingest.Run(cmd.Context(), st, f, ingest.Options{
				Tickers:  args,
				Start:    cfg.Ingest.Start,
				End:      cfg.Ingest.End,
				VendorID: cfg.Ingest.VendorID,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetStyle(table.StyleLight)
			tw.Style().Options.DrawBorder = false
			tw.AppendHeader(table.Row{"SYM", "INSERTED", "STATUS"})
			for _, r := range results {
				status := "ok"
				switch {
				case r.Err != nil:
					status = r.Err.Error()
				case r.Skipped:
					status = "up-to-date"
				}
				tw.AppendRow(table.Row{r.Ticker, r.Inserted, status})
			}
			inserted, failed := ingest.Summary(results)
			tw.AppendFooter(table.Row{"TOTAL", inserted, ""})
			tw.Render()
			if failed == len(results) {
				return errors.New("every ticker failed")
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.String("start", "", "first day to fetch (YYYY-MM-DD, MM/DD/YYYY, ...)")
	fs.String("end", "", "day after the last one to fetch, default today")
	fs.Int64("vendor", store.DefaultVendorID, "data vendor id stored with each row")
	a.bind(fs, map[string]string{
		"start": "ingest.start", "end": "ingest.end", "vendor": "ingest.vendor_id",
	})
	return cmd
}
