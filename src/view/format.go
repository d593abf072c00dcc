package view

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// -----------------------------------------------------------------------------
// Currency Formatter
// -----------------------------------------------------------------------------

// Placeholder is displayed wherever a monetary value is missing.
const Placeholder = "—"

// The closed set of supported display currencies. Anything else falls back
// to USD formatting.
var (
	fiatLocales = map[string]language.Tag{
		"usd": language.AmericanEnglish,
		"eur": language.German,
		"ngn": language.MustParse("en-NG"),
		"gbp": language.BritishEnglish,
	}

	fiatSymbols = map[string]string{
		"usd": "$",
		"eur": "€",
		"ngn": "₦",
		"gbp": "£",
	}
)

// -----------------------------------------------------------------------------

// SupportedFiat reports whether code is one of the display currencies.
func SupportedFiat(code string) bool {
	_, ok := fiatSymbols[code]
	return ok
}

// -----------------------------------------------------------------------------

// FormatFiat renders an amount as a locale-appropriate currency string. A nil
// amount yields the placeholder. Unknown currency codes format as USD.
func FormatFiat(amount *float64, fiat string) string {
	if amount == nil {
		return Placeholder
	}

	tag, ok := fiatLocales[fiat]
	if !ok {
		tag = fiatLocales["usd"]
	}
	symbol, ok := fiatSymbols[fiat]
	if !ok {
		symbol = fiatSymbols["usd"]
	}

	p := message.NewPrinter(tag)
	return p.Sprintf("%s%v", symbol,
		number.Decimal(*amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
