package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/komsit37/cmpchart/pkg/cmpchart/config"
	"github.com/komsit37/cmpchart/pkg/cmpchart/source"
)

type app struct {
	loader  *config.Loader
	cfgPath string
	cfg     config.Config
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{loader: config.New()}
	root := &cobra.Command{
		Use:   "cmpchart",
		Short: "Compare ticker price histories as a percent-change stock chart",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (yaml)")
	pf.String("source", source.KindYAML, "price source: yaml, sqlite, postgres, yahoo")
	pf.String("dsn", "cmpchart.db", "database DSN for sqlite/postgres")
	pf.String("driver", "sqlite", "database driver for ingest: sqlite, postgres")
	pf.String("range", "1y", "yahoo history range (1y, 5y, max, ...)")
	pf.String("proxy", "", "HTTP proxy for Yahoo requests")
	pf.Duration("timeout", config.DefaultTimeout, "per-request timeout for Yahoo requests")
	a.bind(pf, map[string]string{
		"source": "source", "dsn": "dsn", "driver": "driver",
		"range": "range", "proxy": "proxy", "timeout": "timeout",
	})

	root.AddCommand(a.renderCmd(), a.serveCmd(), a.ingestCmd())
	return root
}

type flagLookup interface {
	Lookup(name string) *pflag.Flag
}

// bind maps flag names to config keys. A missing flag is a programming
// error, so it panics.
func (a *app) bind(fs flagLookup, keys map[string]string) {
	for name, key := range keys {
		if err := a.loader.BindFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// specFromArgs turns positional arguments into a source spec: a path for
// the yaml source, a ticker list otherwise.
func specFromArgs(kind string, args []string) (any, error) {
	switch kind {
	case source.KindYAML, "yml", "json", "file":
		if len(args) != 1 {
			return nil, errors.New("yaml source requires exactly 1 file or directory argument")
		}
		return args[0], nil
	case source.KindYahoo:
		if len(args) == 0 {
			return nil, errors.New("yahoo source requires at least 1 ticker")
		}
		return args, nil
	default:
		if len(args) == 0 {
			return nil, nil
		}
		return args, nil
	}
}

func (a *app) source() (source.Source, error) {
	src, err := source.New(a.cfg.Source, source.Options{
		DSN:     a.cfg.DSN,
		Range:   a.cfg.Range,
		Proxy:   a.cfg.Proxy,
		Timeout: a.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return src, nil
}
