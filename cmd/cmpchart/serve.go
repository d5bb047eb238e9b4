package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/komsit37/cmpchart/pkg/cmpchart/render"
	"github.com/komsit37/cmpchart/pkg/cmpchart/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file.yaml|dir|tickers...>",
		Short: "Serve the chart over HTTP and refresh prices on a schedule",
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
			srv, err := server.New(src, server.Options{
				Spec:    spec,
				Origins: cfg.Serve.Origins,
				Render:  render.RenderOptions{Target: cfg.Render.Target, Title: cfg.Render.Title},
			})
			if err != nil {
				return err
			}
			if err := srv.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("initial load: %w", err)
			}
			if cfg.Serve.Refresh != "" {
				if err := srv.Schedule(cfg.Serve.Refresh); err != nil {
					return err
				}
			}
			return srv.Run(cmd.Context(), cfg.Serve.Addr)
		},
	}

	fs := cmd.Flags()
	fs.String("addr", ":8080", "listen address")
	fs.String("refresh", "0 0 * * * *", "cron spec (with seconds) for reloading prices, empty disables")
	fs.StringSlice("origins", []string{"*"}, "allowed CORS origins")
	a.bind(fs, map[string]string{
		"addr": "serve.addr", "refresh": "serve.refresh", "origins": "serve.origins",
	})
	return cmd
}
