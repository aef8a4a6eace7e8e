package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"

	"paxgbot/internal/fetcher"
	"paxgbot/internal/httpclient"
	"paxgbot/internal/ratelimit"
)

// SimplePriceResponse is the /simple/price payload: asset id -> field -> value.
// Fields are "<currency>", "<currency>_24h_change" and "<currency>_market_cap".
// Values are pointers because CoinGecko sends null for data it does not have.
type SimplePriceResponse map[string]map[string]*float64

// PriceFetcher fetches a single asset's quote from CoinGecko
type PriceFetcher struct {
	assetID  string
	currency string
	client   *resty.Client
}

// NewPriceFetcher creates a new quote fetcher for assetID priced in currency
func NewPriceFetcher(assetID, currency, baseURL string, timeout time.Duration) *PriceFetcher {
	return &PriceFetcher{
		assetID:  assetID,
		currency: currency,
		client:   httpclient.New(baseURL, timeout),
	}
}

// Fetch retrieves the current price, 24h change and market cap.
// The change and market cap default to zero when CoinGecko leaves them out.
func (f *PriceFetcher) Fetch(ctx context.Context) (*fetcher.Quote, error) {
	if err := ratelimit.GetLimiter().Wait(ctx, ratelimit.APICoinGecko); err != nil {
		return nil, fetcher.ClassifyTransportError(err)
	}

	var result SimplePriceResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 f.assetID,
			"vs_currencies":       f.currency,
			"include_24hr_change": "true",
			"include_market_cap":  "true",
		}).
		SetResult(&result).
		Get("/simple/price")

	if err != nil {
		if isDecodeError(err) {
			return nil, &fetcher.FetchError{
				Type:    fetcher.ErrorTypeValidation,
				Message: fmt.Sprintf("malformed response for %s", f.assetID),
				Cause:   err,
			}
		}
		return nil, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	fields, ok := result[f.assetID]
	if !ok {
		return nil, fetcher.NewValidationError(fmt.Sprintf("%s not found in response", f.assetID))
	}

	price := fields[f.currency]
	if price == nil {
		return nil, fetcher.NewValidationError(fmt.Sprintf("%s price not found in response for %s", f.currency, f.assetID))
	}

	return &fetcher.Quote{
		Price:     *price,
		Change24h: valueOrZero(fields[f.currency+"_24h_change"]),
		MarketCap: valueOrZero(fields[f.currency+"_market_cap"]),
	}, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Key returns the log key for this fetcher
func (f *PriceFetcher) Key() string {
	return fmt.Sprintf("fetcher:coingecko:%s", f.assetID)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
