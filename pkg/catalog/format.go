package catalog

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders a price for display, e.g. "R$ 19,90" for pt-BR.
// Unknown currencies fall back to the raw code.
func FormatPrice(p Price, tag language.Tag) string {
	unit, err := currency.ParseISO(p.Currency)
	if err != nil {
		return message.NewPrinter(tag).Sprintf("%s %.2f", p.Currency, float64(p.Amount)/100)
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(float64(p.Amount) / 100)))
}
