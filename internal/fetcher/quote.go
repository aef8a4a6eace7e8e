package fetcher

// Quote is the price snapshot for a single relay cycle.
// It is built fresh by a Fetcher and dropped once the cycle's message is sent.
type Quote struct {
	// Price in the quote currency.
	Price float64

	// Change24h is the signed 24-hour change in percent.
	// Zero when the upstream omitted it.
	Change24h float64

	// MarketCap in the quote currency. Zero when the upstream omitted it.
	MarketCap float64
}
