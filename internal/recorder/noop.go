package recorder

import "OptionSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

// NewNoopRecorder returns a recorder that stores nothing.
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

// Append discards the signals.
func (n *NoopRecorder) Append(_ string, _ []model.Signal) error { return nil }

// LoadAll always returns an empty history.
func (n *NoopRecorder) LoadAll() ([]model.Signal, error) { return nil, nil }

// LoadTicker always returns an empty history.
func (n *NoopRecorder) LoadTicker(_ string, _ int) ([]model.Signal, error) {
	return nil, nil
}

// Averages returns zero averages over zero samples for ticker.
func (n *NoopRecorder) Averages(ticker string) (Averages, error) {
	return Averages{Ticker: ticker}, nil
}

// Clear is a no-op.
func (n *NoopRecorder) Clear() error { return nil }

// Close is a no-op.
func (n *NoopRecorder) Close() error { return nil }
