package projection

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatBudget renders a budget the way chart axis labels show it: grouped
// thousands and at most three fraction digits ("1,000", "2,500.5").
func FormatBudget(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatNumber renders v with grouped thousands and exactly decimals
// fraction digits.
func FormatNumber(v float64, decimals int) string {
	return printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
}

// FormatCurrency renders a dollar amount with two decimals.
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = math.Abs(v)
	}
	return sign + "$" + FormatNumber(v, 2)
}

// FormatPercent renders a percentage value (41.5 -> "41.50%").
func FormatPercent(v float64) string {
	return FormatNumber(v, 2) + "%"
}
