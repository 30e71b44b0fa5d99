package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"OptionSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance public API:
// daily bars from the chart endpoint, the nearest expiry's option chain and
// the next earnings timestamp from the options endpoint.
type YahooFetcher struct {
	BaseURL           string
	Client            *http.Client
	Lookback          int     // daily bars kept per ticker
	TopN              int     // contracts kept per side
	UnusualMultiplier float64 // volume > mean*multiplier flags a contract
	Workers           int
	limiter           *rate.Limiter
}

// NewYahooFetcher creates a Yahoo fetcher limited to perMinute requests.
func NewYahooFetcher(proxyURL string, perMinute, lookback, topN int, unusualMultiplier float64) *YahooFetcher {
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	return &YahooFetcher{
		BaseURL:           yahooBaseURL,
		Client:            newHTTPClient(proxyURL),
		Lookback:          lookback,
		TopN:              topN,
		UnusualMultiplier: unusualMultiplier,
		Workers:           4,
		limiter:           rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooContract struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Volume            float64 `json:"volume"`
	OpenInterest      float64 `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

// yahooOptions is the response structure from the options endpoint.
type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				EarningsTimestamp  int64   `json:"earningsTimestamp"`
			} `json:"quote"`
			Options []struct {
				Calls []yahooContract `json:"calls"`
				Puts  []yahooContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"optionChain"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// FetchAll fetches every symbol concurrently. Symbols whose price history
// cannot be fetched are skipped; an error is returned only if none succeed.
func (f *YahooFetcher) FetchAll(ctx context.Context, symbols []string) ([]model.TickerData, error) {
	results := make([]*model.TickerData, len(symbols))
	errs := make([]error, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Workers, 1))
	for i, sym := range symbols {
		g.Go(func() error {
			results[i], errs[i] = f.FetchTicker(ctx, sym)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.TickerData, 0, len(symbols))
	var lastErr error
	for i, td := range results {
		if errs[i] != nil {
			log.Printf("[WARN] yahoo: skip %s: %v", symbols[i], errs[i])
			lastErr = errs[i]
			continue
		}
		out = append(out, *td)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("yahoo: no tickers fetched: %w", lastErr)
	}
	return out, nil
}

// FetchTicker builds one snapshot. A missing option chain leaves the options
// summary empty rather than failing the ticker.
func (f *YahooFetcher) FetchTicker(ctx context.Context, symbol string) (*model.TickerData, error) {
	candles, err := f.fetchDailyBars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	td := &model.TickerData{Ticker: symbol, Candles: candles}
	if len(candles) > 0 {
		td.Price = candles[len(candles)-1].Close
	}

	opts, earnings, err := f.fetchOptions(ctx, symbol)
	if err != nil {
		log.Printf("[WARN] yahoo: options for %s unavailable: %v", symbol, err)
	} else {
		td.Options = opts
		td.EarningsDate = earnings
	}
	return td, nil
}

func (f *YahooFetcher) get(ctx context.Context, path string, v interface{}) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

func (f *YahooFetcher) fetchDailyBars(ctx context.Context, symbol string) ([]model.Candle, error) {
	rng := "3mo"
	if f.Lookback > 60 {
		rng = "1y"
	}
	var chart yahooChart
	path := fmt.Sprintf("/v8/finance/chart/%s?interval=1d&range=%s", url.PathEscape(symbol), rng)
	if err := f.get(ctx, path, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		var v float64
		if i < len(quote.Volume) {
			v = toFloat(quote.Volume[i])
		}
		bars = append(bars, model.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	sortCandles(bars)
	if f.Lookback > 0 && len(bars) > f.Lookback {
		bars = bars[len(bars)-f.Lookback:]
	}
	return bars, nil
}

func (f *YahooFetcher) fetchOptions(ctx context.Context, symbol string) (model.OptionsData, *time.Time, error) {
	var oc yahooOptions
	if err := f.get(ctx, "/v7/finance/options/"+url.PathEscape(symbol), &oc); err != nil {
		return model.OptionsData{}, nil, err
	}
	if oc.OptionChain.Error != nil {
		return model.OptionsData{}, nil, fmt.Errorf("yahoo api error: %s", oc.OptionChain.Error.Description)
	}
	if len(oc.OptionChain.Result) == 0 {
		return model.OptionsData{}, nil, fmt.Errorf("yahoo: empty option chain")
	}
	res := oc.OptionChain.Result[0]

	var earnings *time.Time
	if res.Quote.EarningsTimestamp > 0 {
		t := time.Unix(res.Quote.EarningsTimestamp, 0).UTC()
		earnings = &t
	}
	if len(res.Options) == 0 {
		return model.OptionsData{}, earnings, nil
	}

	calls := convertContracts(res.Options[0].Calls)
	puts := convertContracts(res.Options[0].Puts)
	FlagUnusual(calls, f.UnusualMultiplier)
	FlagUnusual(puts, f.UnusualMultiplier)

	topCalls := TopByVolume(calls, f.TopN)
	topPuts := TopByVolume(puts, f.TopN)
	return model.OptionsData{
		TopCalls:  topCalls,
		TopPuts:   topPuts,
		AverageIV: model.MeanIV(topCalls, topPuts),
	}, earnings, nil
}

func convertContracts(in []yahooContract) []model.OptionContract {
	out := make([]model.OptionContract, len(in))
	for i, c := range in {
		out[i] = model.OptionContract{
			ContractSymbol:    c.ContractSymbol,
			Strike:            c.Strike,
			LastPrice:         c.LastPrice,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: c.ImpliedVolatility,
		}
	}
	return out
}
