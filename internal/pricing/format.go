package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatJPY renders an amount with a yen sign and thousands separators.
func FormatJPY(amount int64) string {
	return printer.Sprintf("¥%d", amount)
}

func strategyExternal(external, internal int64) string {
	return printer.Sprintf("Market arbitrage: external rate %s undercuts internal contract %s per room-night",
		FormatJPY(external), FormatJPY(internal))
}

func strategyInternal(internal, external int64) string {
	return printer.Sprintf("Internal contract rate %s per room-night (market quote %s)",
		FormatJPY(internal), FormatJPY(external))
}

func strategyFallback(internal int64) string {
	return printer.Sprintf("Internal contract rate %s per room-night (market rate unavailable)", FormatJPY(internal))
}
