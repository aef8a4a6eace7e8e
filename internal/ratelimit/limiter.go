// Package ratelimit keeps outbound calls to each upstream under its published limits.
package ratelimit

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// API names an upstream with its own request budget
type API string

const (
	// APICoinGecko is the CoinGecko public API
	APICoinGecko API = "coingecko"
	// APITelegram is the Telegram Bot API
	APITelegram API = "telegram"
)

// productionLimits holds the minimum spacing between two calls per API.
var productionLimits = map[API]time.Duration{
	// public tier: 30 calls per minute
	APICoinGecko: 2 * time.Second,
	// 20 messages per minute into one channel
	APITelegram: 3 * time.Second,
}

// Limiter spaces out requests per API
type Limiter struct {
	limiters map[API]*rate.Limiter
}

var (
	instance *Limiter
	once     sync.Once
)

// GetLimiter returns the process-wide limiter. Under `go test` every API is unlimited.
func GetLimiter() *Limiter {
	once.Do(func() {
		instance = newLimiter(productionLimits, runningTests())
	})
	return instance
}

func newLimiter(spacing map[API]time.Duration, unlimited bool) *Limiter {
	l := &Limiter{limiters: make(map[API]*rate.Limiter, len(spacing))}

	for api, every := range spacing {
		limit := rate.Every(every)
		if unlimited {
			limit = rate.Inf
		}
		l.limiters[api] = rate.NewLimiter(limit, 1)
	}

	return l
}

func runningTests() bool {
	if os.Getenv("GO_TESTING") == "1" {
		return true
	}
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// Wait blocks until api may be called again, or ctx ends.
// APIs without a configured limit pass straight through.
func (l *Limiter) Wait(ctx context.Context, api API) error {
	limiter, ok := l.limiters[api]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
