package httpclient

import (
	"log/slog"
	"regexp"
	"time"

	"resty.dev/v3"
)

const userAgent = "paxgbot/1.0"

// Redacted replaces credentials in anything that gets logged
const Redacted = "<redacted>"

// Telegram puts the bot token in the path: /bot<token>/method
var botTokenPath = regexp.MustCompile(`/bot[^/]+/`)

// New creates a resty client bound to baseURL.
//
// Every request is bounded by timeout. The client never retries: a failed
// request is reported to the caller, which decides what the cycle does next.
func New(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		AddResponseMiddleware(logResponse)

	return client
}

// logResponse records every completed request at debug level
func logResponse(_ *resty.Client, r *resty.Response) error {
	slog.Debug("upstream request completed",
		"method", r.Request.Method,
		"url", RedactURL(r.Request.URL),
		"status_code", r.StatusCode())
	return nil
}

// RedactURL hides a bot token embedded in rawURL
func RedactURL(rawURL string) string {
	return botTokenPath.ReplaceAllString(rawURL, "/bot"+Redacted+"/")
}
