package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"paxgbot/internal/coingecko"
	"paxgbot/internal/config"
	"paxgbot/internal/format"
	"paxgbot/internal/metrics"
	"paxgbot/internal/relay"
	"paxgbot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.LogLevel)

	// Stop cleanly on Ctrl+C or SIGTERM from the supervisor
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🤖 %s Price Bot Started\n", cfg.AssetSymbol)
	fmt.Printf("📢 Posting to channel every %s\n", describeInterval(cfg.UpdateInterval.Minutes()))

	priceFetcher := coingecko.NewPriceFetcher(
		cfg.AssetID,
		cfg.VsCurrency,
		cfg.CoinGeckoBaseURL,
		cfg.RequestTimeout,
	)

	publisher := telegram.NewPublisher(
		cfg.TelegramBotToken,
		cfg.TelegramChannelID,
		cfg.ParseMode,
		cfg.TelegramBaseURL,
		cfg.RequestTimeout,
	)

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			slog.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	loop := relay.New(
		priceFetcher,
		format.New(cfg.AssetSymbol, cfg.VsCurrency),
		publisher,
		relay.WithInterval(cfg.UpdateInterval),
		relay.WithRetryDelay(cfg.RetryDelay),
		relay.WithMetrics(m),
	)

	if err := loop.Run(ctx); err != nil {
		log.Fatalf("Update loop failed: %v", err)
	}

	fmt.Println("\n👋 Bot stopped by user")
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// describeInterval renders an interval in whole minutes when it is one
func describeInterval(minutes float64) string {
	if minutes >= 1 && minutes == float64(int(minutes)) {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", int(minutes))
	}
	return fmt.Sprintf("%.0f seconds", minutes*60)
}
