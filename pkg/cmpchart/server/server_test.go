package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeSource struct {
	mu    sync.Mutex
	sets  []*types.RawPriceSet
	err   error
	loads int
}

func (f *fakeSource) Load(context.Context, any) (*types.RawPriceSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	raw := f.sets[min(f.loads, len(f.sets)-1)]
	f.loads++
	return raw, nil
}

func set(tickers ...string) *types.RawPriceSet {
	raw := types.NewRawPriceSet(len(tickers))
	for i, t := range tickers {
		raw.Set(t, []types.Point{{Time: 1704153600000, Price: float64(100 + i)}})
	}
	return raw
}

func newServer(t *testing.T, src *fakeSource, origins ...string) *Server {
	t.Helper()
	s, err := New(src, Options{Origins: origins})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNotLoaded(t *testing.T) {
	s := newServer(t, &fakeSource{sets: []*types.RawPriceSet{set("AAPL")}})
	for _, path := range []string{"/", "/api/chart", "/api/tickers", "/health"} {
		if w := get(t, s.Handler(), path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, w.Code)
		}
	}
}

func TestRoutes(t *testing.T) {
	s := newServer(t, &fakeSource{sets: []*types.RawPriceSet{set("MSFT", "AAPL", "AMZN")}})
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	h := s.Handler()

	t.Run("page", func(t *testing.T) {
		w := get(t, h, "/")
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("content type = %q", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `Highcharts.stockChart("stockchart", options);`) || !strings.Contains(body, `"name":"AMZN"`) {
			t.Errorf("unexpected page:\n%s", body)
		}
	})

	t.Run("chart filtered", func(t *testing.T) {
		w := get(t, h, "/api/chart?only=A*")
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d: %s", w.Code, w.Body.String())
		}
		var got struct {
			RangeSelector struct{ Selected int } `json:"rangeSelector"`
			PlotOptions   struct {
				Series struct{ Compare string } `json:"series"`
			} `json:"plotOptions"`
			Series []struct{ Name string } `json:"series"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		names := []string{}
		for _, s := range got.Series {
			names = append(names, s.Name)
		}
		if diff := cmp.Diff([]string{"AAPL", "AMZN"}, names); diff != "" {
			t.Errorf("series mismatch (-want +got):\n%s", diff)
		}
		if got.RangeSelector.Selected != 4 || got.PlotOptions.Series.Compare != "percent" {
			t.Errorf("options = %+v", got)
		}
	})

	t.Run("tickers", func(t *testing.T) {
		w := get(t, h, "/api/tickers")
		var got struct {
			Tickers  []string `json:"tickers"`
			LoadedAt string   `json:"loaded_at"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"MSFT", "AAPL", "AMZN"}, got.Tickers); diff != "" {
			t.Errorf("tickers mismatch (-want +got):\n%s", diff)
		}
		if got.LoadedAt == "" {
			t.Error("loaded_at missing")
		}
	})

	t.Run("tickers none match", func(t *testing.T) {
		w := get(t, h, "/api/tickers?only=ZZZ")
		if !strings.Contains(w.Body.String(), `"tickers":[]`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("bad filter", func(t *testing.T) {
		if w := get(t, h, "/api/chart?only=/[a-/"); w.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want 400", w.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		w := get(t, h, "/health")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"tickers":3`) {
			t.Errorf("health = %d %s", w.Code, w.Body.String())
		}
	})
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	src := &fakeSource{sets: []*types.RawPriceSet{set("AAPL"), set("AAPL", "MSFT")}}
	s := newServer(t, src)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"tickers":2`) {
		t.Fatalf("refresh = %d %s", w.Code, w.Body.String())
	}

	// a failed reload keeps serving the previous data
	src.err = errors.New("db down")
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if w := get(t, s.Handler(), "/health"); !strings.Contains(w.Body.String(), `"tickers":2`) {
		t.Errorf("health after failed refresh = %s", w.Body.String())
	}
}

func TestTickersPairsDataWithItsLoadTime(t *testing.T) {
	src := &fakeSource{sets: []*types.RawPriceSet{set("AAPL"), set("AAPL", "MSFT")}}
	s := newServer(t, src)
	loads := []time.Time{
		time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC),
	}
	s.now = func() time.Time {
		t0 := loads[0]
		loads = loads[1:]
		return t0
	}
	for range 2 {
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	w := get(t, s.Handler(), "/api/tickers")
	var got struct {
		Tickers  []string `json:"tickers"`
		LoadedAt string   `json:"loaded_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := struct {
		Tickers  []string `json:"tickers"`
		LoadedAt string   `json:"loaded_at"`
	}{Tickers: []string{"AAPL", "MSFT"}, LoadedAt: "2024-01-02T10:00:00Z"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tickers mismatch (-want +got):\n%s", diff)
	}
}

func TestCORS(t *testing.T) {
	testCases := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "all", origins: []string{"*"}, origin: "http://example.com", want: "*"},
		{name: "listed", origins: []string{"http://localhost:3000"}, origin: "http://localhost:3000", want: "http://localhost:3000"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, &fakeSource{sets: []*types.RawPriceSet{set("AAPL")}}, tc.origins...)
			if err := s.Refresh(context.Background()); err != nil {
				t.Fatal(err)
			}
			req := httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewRejectsBadOrigin(t *testing.T) {
	if _, err := New(&fakeSource{}, Options{Origins: []string{"localhost:3000"}}); err == nil {
		t.Fatal("expected cors validation error")
	}
}

func TestSchedule(t *testing.T) {
	s := newServer(t, &fakeSource{sets: []*types.RawPriceSet{set("AAPL")}})
	if err := s.Schedule("@every 1h"); err != nil {
		t.Errorf("Schedule: %v", err)
	}
	if err := s.Schedule("0 * * * *"); err == nil {
		t.Error("expected error for five-field spec")
	}
}
