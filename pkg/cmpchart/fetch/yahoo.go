// Package fetch downloads daily bars from Yahoo Finance's chart API.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Bar is one daily OHLCV observation.
type Bar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// Window selects the bars to fetch: either a Yahoo range string such as
// "1y" or "max", or an explicit [From, To) interval.
type Window struct {
	Range    string
	From, To time.Time
}

// Fetcher returns daily bars for a symbol.
type Fetcher interface {
	Daily(ctx context.Context, symbol string, w Window) ([]Bar, error)
}

// YahooFetcher implements Fetcher using Yahoo Finance's public chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooFetcher creates a fetcher, optionally routed through proxyURL.
func NewYahooFetcher(proxyURL string, timeout time.Duration) (*YahooFetcher, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooFetcher{
		Client:  &http.Client{Timeout: timeout, Transport: transport},
		BaseURL: DefaultBaseURL,
	}, nil
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) Daily(ctx context.Context, symbol string, w Window) ([]Bar, error) {
	q := url.Values{"interval": {"1d"}, "events": {"history"}}
	switch {
	case w.Range != "":
		q.Set("range", w.Range)
	case !w.From.IsZero():
		to := w.To
		if to.IsZero() {
			to = time.Now()
		}
		q.Set("period1", strconv.FormatInt(w.From.Unix(), 10))
		q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	default:
		q.Set("range", "1y")
	}

	base := f.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", base, url.PathEscape(symbol), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d", symbol, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}
	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue // holidays and half-filled days come back as nulls
		}
		b := Bar{
			Time:     time.Unix(ts, 0).UTC(),
			Open:     deref(at(quote.Open, i)),
			High:     deref(at(quote.High, i)),
			Low:      deref(at(quote.Low, i)),
			Close:    *c,
			AdjClose: *c,
			Volume:   deref(at(quote.Volume, i)),
		}
		if a := at(adj, i); a != nil {
			b.AdjClose = *a
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
