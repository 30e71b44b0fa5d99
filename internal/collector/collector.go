package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"OptionSentinel/internal/model"
)

var errEmptyLive = errors.New("live data source returned no data")

// Collector fetches the watchlist, preferring the live source and falling
// back to the mock source. Once on mock data it stays there until a live
// attempt is forced.
type Collector struct {
	Live       Fetcher // nil means mock only
	Mock       Fetcher
	Symbols    []string
	NewBackOff func() backoff.BackOff

	mu     sync.Mutex
	status model.DataStatus
}

// NewCollector creates a new Collector in the loading state.
func NewCollector(live, mock Fetcher, symbols []string) *Collector {
	return &Collector{
		Live:    live,
		Mock:    mock,
		Symbols: symbols,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		status: model.StatusLoading,
	}
}

// Status returns the provenance of the most recent data set.
func (c *Collector) Status() model.DataStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Collector) setStatus(s model.DataStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Collect fetches one snapshot per watchlist symbol and reports which
// source produced it.
func (c *Collector) Collect(ctx context.Context, forceLive bool) ([]model.TickerData, model.DataStatus, error) {
	prev := c.Status()
	c.setStatus(model.StatusLoading)

	if c.Live != nil && (prev != model.StatusMock || forceLive) {
		data, err := c.collectLive(ctx)
		if err == nil {
			log.Printf("[INFO] live data fetched from %s (%d tickers)", c.Live.Name(), len(data))
			c.setStatus(model.StatusLive)
			return data, model.StatusLive, nil
		}
		if ctx.Err() != nil {
			c.setStatus(prev)
			return nil, prev, ctx.Err()
		}
		log.Printf("[WARN] live data failed, falling back to mock data: %v", err)
	}

	data, err := c.Mock.FetchAll(ctx, c.Symbols)
	if err != nil {
		c.setStatus(prev)
		return nil, prev, fmt.Errorf("mock fetch: %w", err)
	}
	c.setStatus(model.StatusMock)
	return data, model.StatusMock, nil
}

func (c *Collector) collectLive(ctx context.Context) ([]model.TickerData, error) {
	var data []model.TickerData
	op := func() error {
		d, err := c.Live.FetchAll(ctx, c.Symbols)
		if err != nil {
			return err
		}
		if len(d) == 0 {
			return errEmptyLive
		}
		data = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("[WARN] %s fetch failed, retrying in %v: %v", c.Live.Name(), wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.NewBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return data, nil
}
