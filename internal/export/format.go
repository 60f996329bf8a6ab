package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a monetary amount for the given ISO currency code and
// locale. An unknown currency or locale falls back to a raw numeric
// representation instead of failing the export.
func FormatAmount(amount decimal.Decimal, code, locale string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	value, _ := amount.Float64()
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(value)))
}

// FormatDuration renders a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
