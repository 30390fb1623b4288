package normalize

import (
	"strings"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/shopspring/decimal"
)

// DefaultSymbol is reported as the mining currency when nothing else is known.
const DefaultSymbol = "BTC"

// knownKeys are the raw wire keys the game uses, in display order.
var knownKeys = []string{
	"SAT", "ETH_SMALL", "SOL_SMALL", "BNB_SMALL", "DOGE_SMALL", "LTC_SMALL",
	"XRP_SMALL", "TRX_SMALL", "MATIC_SMALL", "RLT", "RST", "HMT",
}

var symbolByKey = map[string]string{
	"SAT":         "BTC",
	"ETH_SMALL":   "ETH",
	"SOL_SMALL":   "SOL",
	"DOGE_SMALL":  "DOGE",
	"BNB_SMALL":   "BNB",
	"LTC_SMALL":   "LTC",
	"XRP_SMALL":   "XRP",
	"TRX_SMALL":   "TRX",
	"MATIC_SMALL": "POL",
	"MATIC":       "POL",
}

var codeBySymbol = map[string]string{
	"POL":   "matic",
	"MATIC": "matic",
}

// payout decimals per raw key, used when no config is known for a currency
var payoutDecimals = map[string]int32{
	"RLT":         6,
	"RST":         6,
	"HMT":         6,
	"SAT":         10,
	"ETH_SMALL":   10,
	"SOL_SMALL":   9,
	"DOGE_SMALL":  4,
	"BNB_SMALL":   10,
	"LTC_SMALL":   8,
	"XRP_SMALL":   6,
	"TRX_SMALL":   10,
	"MATIC_SMALL": 10,
}

var gameTokens = map[string]bool{"RLT": true, "RST": true, "HMT": true}

const defaultDivisor = 100000000

func KnownCurrencyKeys() []string {
	out := make([]string, len(knownKeys))
	copy(out, knownKeys)
	return out
}

// ToCanonicalSymbol maps a raw key (SAT, ETH_SMALL, MATIC) to the symbol
// shown to users. Unknown keys pass through.
func ToCanonicalSymbol(rawKey string) string {
	if s, ok := symbolByKey[rawKey]; ok {
		return s
	}
	if s, ok := symbolByKey[strings.ToUpper(rawKey)]; ok {
		return s
	}
	return rawKey
}

// CodeForSymbol returns the lowercase config code for a display symbol.
func CodeForSymbol(symbol string) string {
	if c, ok := codeBySymbol[strings.ToUpper(symbol)]; ok {
		return c
	}
	return strings.ToLower(symbol)
}

func CodeFor(rawKey string) string {
	return CodeForSymbol(ToCanonicalSymbol(rawKey))
}

func IsGameToken(symbol string) bool {
	return gameTokens[strings.ToUpper(symbol)]
}

// SameCurrency reports whether two keys (raw or symbol) name one currency.
func SameCurrency(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(ToCanonicalSymbol(a), ToCanonicalSymbol(b))
}

func pow10(exp int32) decimal.Decimal {
	return decimal.New(1, exp)
}

// balanceDivisor - BTC balances are stored at precision_to_balance, every
// other currency at to_small.
func balanceDivisor(cfg model.CurrencyConfig) decimal.Decimal {
	if cfg.Code == "btc" {
		precision := cfg.PrecisionToBalance
		if precision <= 0 {
			precision = 10
		}
		return pow10(precision)
	}
	if cfg.ToSmall > 0 {
		return decimal.NewFromInt(cfg.ToSmall)
	}
	return decimal.NewFromInt(defaultDivisor)
}

// ScaleRawBalance converts a wire balance into a human amount. Strings
// containing '.' are already decimal; anything else is a raw integer.
// Malformed input yields 0.
func ScaleRawBalance(raw string, cfg model.CurrencyConfig) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if strings.Contains(raw, ".") {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return 0
		}
		f, _ := d.Float64()
		return Finite(f)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	f, _ := d.Div(balanceDivisor(cfg)).Float64()
	return Finite(f)
}

// PayoutDivisor is the scale applied to a raw block payout. A matching
// config wins; otherwise the per-key decimals table, otherwise 10^8.
func PayoutDivisor(rawKey string, cfg *model.CurrencyConfig) decimal.Decimal {
	if cfg != nil {
		return balanceDivisor(*cfg)
	}
	if d, ok := payoutDecimals[rawKey]; ok {
		return pow10(d)
	}
	return decimal.NewFromInt(defaultDivisor)
}

// ScalePayout converts a raw block payout into whole-coin units.
func ScalePayout(raw float64, rawKey string, cfg *model.CurrencyConfig) float64 {
	raw = Finite(raw)
	if raw <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(raw).Div(PayoutDivisor(rawKey, cfg)).Float64()
	return Finite(f)
}
