// Package server serves the comparison chart over HTTP and keeps its
// price data fresh on a cron schedule.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/komsit37/cmpchart/pkg/cmpchart/filter"
	"github.com/komsit37/cmpchart/pkg/cmpchart/pipeline"
	"github.com/komsit37/cmpchart/pkg/cmpchart/render"
	"github.com/komsit37/cmpchart/pkg/cmpchart/source"
	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

type Options struct {
	Spec    any      // passed to Source.Load on every refresh
	Origins []string // CORS origins, "*" allows all
	Render  render.RenderOptions
	// RefreshTimeout bounds one scheduled reload. Zero means one minute.
	RefreshTimeout time.Duration
}

// snapshot is replaced wholesale on refresh and never mutated.
type snapshot struct {
	raw      *types.RawPriceSet
	loadedAt time.Time
}

type Server struct {
	src    source.Source
	opts   Options
	engine *gin.Engine
	html   *render.HTMLRenderer
	cron   *cron.Cron
	now    func() time.Time

	snap      atomic.Pointer[snapshot]
	refreshMu sync.Mutex
}

func New(src source.Source, opts Options) (*Server, error) {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = time.Minute
	}
	s := &Server{
		src:  src,
		opts: opts,
		html: render.NewHTMLRenderer(),
		cron: cron.New(cron.WithSeconds()),
		now:  time.Now,
	}

	corsCfg := cors.DefaultConfig()
	if len(opts.Origins) == 0 || slices.Contains(opts.Origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.Origins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	if err := corsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}

	r := gin.Default()
	r.Use(cors.New(corsCfg))
	s.routes(r)
	s.engine = r
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Refresh reloads the price set from the source. On failure the previous
// snapshot stays in place.
func (s *Server) Refresh(ctx context.Context) error {
	_, err := s.reload(ctx)
	return err
}

func (s *Server) reload(ctx context.Context) (*snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	raw, err := s.src.Load(ctx, s.opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	snap := &snapshot{raw: raw, loadedAt: s.now()}
	s.snap.Store(snap)
	log.Printf("[INFO] loaded %d tickers", raw.Len())
	return snap, nil
}

// Schedule registers periodic refreshes with a six-field cron spec.
func (s *Server) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefreshTimeout)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			log.Printf("[WARN] scheduled %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register refresh %q: %w", spec, err)
	}
	return nil
}

// Run serves on addr until ctx is cancelled, running the refresh schedule
// alongside.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	s.cron.Start()
	log.Println("[INFO] scheduler started")
	defer func() {
		<-s.cron.Stop().Done()
		log.Println("[INFO] scheduler stopped")
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("[INFO] shutdown signal received, stopping...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.page)
	r.GET("/health", s.health)
	api := r.Group("/api")
	{
		api.GET("/chart", s.chart)
		api.GET("/tickers", s.tickers)
		api.POST("/refresh", s.refresh)
	}
}

// current loads the snapshot once and returns it with its prices narrowed
// by the ?only= filter. It writes the error response itself and reports
// false on failure.
func (s *Server) current(c *gin.Context) (*snapshot, *types.RawPriceSet, bool) {
	snap := s.snap.Load()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prices not loaded yet"})
		return nil, nil, false
	}
	f, err := filter.Parse(c.Query("only"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return snap, filter.Apply(snap.raw, f), true
}

func (s *Server) page(c *gin.Context) {
	_, raw, ok := s.current(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.html.Render(&buf, pipeline.Build(raw, nil), s.opts.Render); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) chart(c *gin.Context) {
	_, raw, ok := s.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pipeline.Build(raw, nil))
}

func (s *Server) tickers(c *gin.Context) {
	snap, raw, ok := s.current(c)
	if !ok {
		return
	}
	tickers := raw.Tickers()
	if tickers == nil {
		tickers = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tickers":   tickers,
		"loaded_at": snap.loadedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) refresh(c *gin.Context) {
	snap, err := s.reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickers": snap.raw.Len()})
}

func (s *Server) health(c *gin.Context) {
	snap := s.snap.Load()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tickers": snap.raw.Len()})
}
