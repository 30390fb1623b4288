package report

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
)

var fiatSymbols = map[model.FiatCurrency]string{
	"USDT": "$",
	"TRY":  "₺",
	"EUR":  "€",
	"GBP":  "£",
	"RUB":  "₽",
	"BRL":  "R$",
}

var cryptoDecimals = map[string]int{
	"BTC":  8,
	"ETH":  6,
	"BNB":  6,
	"SOL":  6,
	"LTC":  6,
	"DOGE": 4,
	"XRP":  4,
	"TRX":  4,
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatDuration renders a day count as hours under a day, days under a
// month and months plus leftover days beyond that.
func FormatDuration(days float64) string {
	if !finite(days) || days < 0 {
		return "never"
	}
	switch {
	case days < 1:
		return fmt.Sprintf("%d hours", int64(math.Ceil(days*24)))
	case days < 30:
		return fmt.Sprintf("%d days", int64(math.Ceil(days)))
	}
	months := int64(math.Floor(days / 30))
	remaining := int64(math.Ceil(math.Mod(days, 30)))
	if remaining > 0 {
		return fmt.Sprintf("%d months %d days", months, remaining)
	}
	return fmt.Sprintf("%d months", months)
}

// FormatCrypto groups thousands and trims to the currency's usual precision.
func FormatCrypto(amount float64, currency string) string {
	if !finite(amount) {
		return "0.00"
	}
	decimals, ok := cryptoDecimals[currency]
	if !ok {
		decimals = 6
	}
	return humanize.CommafWithDigits(amount, decimals)
}

// FormatBalance picks precision from the magnitude of the amount.
func FormatBalance(amount float64) string {
	if !finite(amount) || amount <= 0 {
		return "0"
	}
	switch {
	case amount < 0.0001:
		return fmt.Sprintf("%.8f", amount)
	case amount < 0.01:
		return fmt.Sprintf("%.6f", amount)
	case amount < 1:
		return fmt.Sprintf("%.4f", amount)
	case amount < 100:
		return fmt.Sprintf("%.2f", amount)
	}
	return humanize.Comma(int64(math.Floor(amount)))
}

func FormatFiat(amount float64, fiat model.FiatCurrency) string {
	symbol := fiatSymbols[fiat]
	if !finite(amount) {
		return symbol + "0.00"
	}
	return symbol + humanize.FormatFloat("#,###.##", amount)
}

// FormatPower renders game power, which the league api reports in Gh/s.
func FormatPower(power float64) string {
	return normalize.FormatPower(power, normalize.UnitGh)
}
