// Package telegram publishes messages to a Telegram channel through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"

	"paxgbot/internal/httpclient"
	"paxgbot/internal/ratelimit"
)

// SendMessageResponse is the subset of the sendMessage reply we check
type SendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Publisher sends formatted text to one channel
type Publisher struct {
	token     string
	channelID string
	parseMode string
	client    *resty.Client
	now       func() time.Time
}

// NewPublisher creates a publisher for channelID authenticated by the bot token
func NewPublisher(token, channelID, parseMode, baseURL string, timeout time.Duration) *Publisher {
	return &Publisher{
		token:     token,
		channelID: channelID,
		parseMode: parseMode,
		client:    httpclient.New(baseURL, timeout),
		now:       time.Now,
	}
}

// Send posts text to the channel and returns the first problem it hits
func (p *Publisher) Send(ctx context.Context, text string) error {
	if err := ratelimit.GetLimiter().Wait(ctx, ratelimit.APITelegram); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	form := map[string]string{
		"chat_id": p.channelID,
		"text":    text,
	}
	if p.parseMode != "" {
		form["parse_mode"] = p.parseMode
	}

	var result SendMessageResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", p.token))

	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.channelID, p.redact(err))
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode())
	}

	if !result.OK {
		return fmt.Errorf("telegram API rejected message: %s", result.Description)
	}

	return nil
}

// redact strips the request URL, which carries the bot token, from err
func (p *Publisher) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if p.token != "" && strings.Contains(err.Error(), p.token) {
		return errors.New(strings.ReplaceAll(err.Error(), p.token, httpclient.Redacted))
	}
	return err
}

// Publish sends text and reports whether it was delivered.
// Failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, text string) bool {
	if err := p.Send(ctx, text); err != nil {
		slog.Error("error sending message", "channel", p.channelID, "error", err)
		return false
	}

	slog.Info("message sent successfully", "channel", p.channelID, "at", p.now().Format(time.DateTime))
	return true
}
