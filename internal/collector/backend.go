package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"OptionSentinel/internal/model"
)

// BackendFetcher reads snapshots from a companion data service exposing
// GET /data?tickers=A,B returning {"tickers": [TickerData...]}.
type BackendFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBackendFetcher creates a new fetcher with optional proxy support.
func NewBackendFetcher(baseURL, proxyURL string) *BackendFetcher {
	return &BackendFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *BackendFetcher) Name() string { return "backend" }

func (f *BackendFetcher) FetchAll(ctx context.Context, symbols []string) ([]model.TickerData, error) {
	endpoint := fmt.Sprintf("%s/data?tickers=%s", f.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("backend fetch: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Tickers []model.TickerData `json:"tickers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	if result.Tickers == nil {
		return nil, fmt.Errorf("malformed backend response: missing tickers")
	}
	for i := range result.Tickers {
		sortCandles(result.Tickers[i].Candles)
	}
	return result.Tickers, nil
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
