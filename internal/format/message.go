// Package format renders quotes into channel messages.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"paxgbot/internal/fetcher"
)

// FailureNotice is sent in place of a quote when the fetch failed.
const FailureNotice = "❌ Unable to fetch PAXG price"

const timestampLayout = "2006-01-02 15:04:05"

var currencySigns = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

var defaultFormatter = New("PAXG", "usd")

// Formatter renders quotes for one asset and quote currency
type Formatter struct {
	symbol  string
	sign    string
	printer *message.Printer
}

// New creates a Formatter. symbol appears in the title, currency selects the price sign.
func New(symbol, currency string) *Formatter {
	sign, ok := currencySigns[strings.ToLower(currency)]
	if !ok {
		sign = strings.ToUpper(currency) + " "
	}

	return &Formatter{
		symbol:  symbol,
		sign:    sign,
		printer: message.NewPrinter(language.English),
	}
}

// Message formats q with the default PAXG/USD formatter
func Message(q *fetcher.Quote, now time.Time) string {
	return defaultFormatter.Format(q, now)
}

// FailureNotice returns the text sent when no quote is available
func (f *Formatter) FailureNotice() string {
	return fmt.Sprintf("❌ Unable to fetch %s price", f.symbol)
}

// Format renders q as Markdown, or the failure notice when q is nil.
// now is printed in UTC.
func (f *Formatter) Format(q *fetcher.Quote, now time.Time) string {
	if q == nil {
		return f.FailureNotice()
	}

	change := q.Change24h
	if change == 0 {
		change = 0 // drop the sign of negative zero
	}

	trend, changeSign := "📈", "+"
	if change < 0 {
		trend, changeSign = "📉", ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🪙 *%s Price Update*\n\n", f.symbol)
	fmt.Fprintf(&b, "💰 Price: %s%s\n", f.sign, f.printer.Sprintf("%.2f", q.Price))
	fmt.Fprintf(&b, "%s 24h Change: %s%.2f%%\n", trend, changeSign, change)
	fmt.Fprintf(&b, "📊 Market Cap: %s%s\n\n", f.sign, f.printer.Sprintf("%.0f", q.MarketCap))
	fmt.Fprintf(&b, "🕐 Updated: %s UTC", now.UTC().Format(timestampLayout))

	return b.String()
}
