package fetcher

import "context"

// Fetcher is implemented by every upstream the relay reads quotes from.
type Fetcher interface {
	// Fetch retrieves the latest quote for the configured asset.
	// A non-nil error means no quote is available for this cycle;
	// the returned *Quote is nil in that case.
	Fetch(ctx context.Context) (*Quote, error)

	// Key identifies the fetcher in logs.
	// Format: fetcher:{source}:{asset}, e.g. fetcher:coingecko:pax-gold
	Key() string
}
