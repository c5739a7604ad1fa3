package news

import (
	"context"

	"TradePilot/internal/model"
)

// Fetcher retrieves recent headlines for a symbol. Implementations are
// replaceable data sources; fetch failures zero out the symbol's
// sentiment input and never abort a cycle.
type Fetcher interface {
	FetchHeadlines(ctx context.Context, symbol string) ([]model.Headline, error)
	Name() string
}

// StaticFetcher serves fixed headlines, used in simulation and tests.
type StaticFetcher struct {
	Headlines map[string][]model.Headline
}

func (f *StaticFetcher) Name() string { return "static" }

func (f *StaticFetcher) FetchHeadlines(_ context.Context, symbol string) ([]model.Headline, error) {
	return f.Headlines[symbol], nil
}
