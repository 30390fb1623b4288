package normalize

import (
	"fmt"
	"math"
	"testing"

	"github.com/onemorebsmith/league-calc/src/model"
)

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestParsePowerString(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"13.152 Eh/s", 13.152e18},
		{"3.932 Zh/s", 3.932e21},
		{"881.997 Eh", 881.997e18},
		{"  12   gh/S ", 12e9},
		{"5H", 5},
		{"5 h/s", 5},
		{"1,5 Ph/s", 1.5e15},
		{"1.234.567 Mh/s", 1234567e6},
		{"1,234,567.5 Kh/s", 1234567.5e3},
		{"1.234.567,5 Kh/s", 1234567.5e3},
		{"7 E/s", 7e18},
		{"2 YH/s", 2e24},
		{"", 0},
		{"Eh/s", 0},
		{"12", 0},
		{"12 Qh/s", 0},
		{"abc Eh/s", 0},
		{"1..2 Th", 0},
		{"-5 Th", 0},
	}
	for _, c := range cases {
		got := ParsePowerString(c.in)
		if !approxEqual(got, c.want) {
			t.Errorf("ParsePowerString(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParsePowerRoundTrip(t *testing.T) {
	values := []float64{0.001, 1, 13.152, 999.999, 123456.5}
	for _, u := range Units {
		for _, v := range values {
			s := fmt.Sprintf("%g %s/s", v, u)
			got := ParsePowerString(s)
			want := v * Multiplier(u)
			if !approxEqual(got, want) {
				t.Errorf("round trip %q = %v, want %v", s, got, want)
			}
		}
	}
}

func TestFormatPower(t *testing.T) {
	if got := FormatPower(13152, UnitGh); got != "13.15 Th/s" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatPower(0, UnitGh); got != "0 Gh/s" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatPower(math.NaN(), UnitGh); got != "0 Gh/s" {
		t.Fatalf("unexpected format: %s", got)
	}
	v, u := AutoScale(5e30, UnitH)
	if u != UnitYh || !approxEqual(v, 5e6) {
		t.Fatalf("autoscale should stop at the largest unit, got %v %s", v, u)
	}
}

func TestCanonicalSymbols(t *testing.T) {
	cases := map[string]string{
		"SAT":         "BTC",
		"ETH_SMALL":   "ETH",
		"MATIC":       "POL",
		"MATIC_SMALL": "POL",
		"trx_small":   "TRX",
		"RLT":         "RLT",
		"ALGO":        "ALGO",
		"":            "",
	}
	for in, want := range cases {
		if got := ToCanonicalSymbol(in); got != want {
			t.Errorf("ToCanonicalSymbol(%q) = %q, want %q", in, got, want)
		}
	}
	if CodeFor("MATIC_SMALL") != "matic" || CodeFor("SAT") != "btc" || CodeFor("RST") != "rst" {
		t.Fatalf("unexpected code mapping")
	}
	if !SameCurrency("SAT", "BTC") || SameCurrency("SAT", "ETH") || SameCurrency("", "") {
		t.Fatalf("unexpected SameCurrency result")
	}
}

func TestScaleRawBalance(t *testing.T) {
	trx := model.CurrencyConfig{Code: "trx", ToSmall: 10000000000, PrecisionToBalance: 10}
	if got := ScaleRawBalance("299607825300", trx); got != 29.96078253 {
		t.Fatalf("unexpected trx balance %v", got)
	}
	if got := ScaleRawBalance("29.960782", trx); got != 29.960782 {
		t.Fatalf("decimal strings should pass through, got %v", got)
	}
	if got := ScaleRawBalance("29.960782", model.CurrencyConfig{}); got != 29.960782 {
		t.Fatalf("decimal strings should ignore config, got %v", got)
	}
	btc := model.CurrencyConfig{Code: "btc", ToSmall: 100000000, PrecisionToBalance: 10}
	if got := ScaleRawBalance("8500000", btc); !approxEqual(got, 0.00085) {
		t.Fatalf("btc should scale by precision_to_balance, got %v", got)
	}
	if got := ScaleRawBalance("100000000", model.CurrencyConfig{Code: "ltc"}); got != 1 {
		t.Fatalf("missing to_small should default to 1e8, got %v", got)
	}
	for _, bad := range []string{"", "abc", "12abc", "1.2.3"} {
		if got := ScaleRawBalance(bad, trx); got != 0 {
			t.Fatalf("malformed %q should scale to 0, got %v", bad, got)
		}
	}
}

func TestScalePayout(t *testing.T) {
	if got := ScalePayout(118000000000, "TRX_SMALL", nil); got != 11.8 {
		t.Fatalf("unexpected trx payout %v", got)
	}
	sol := model.CurrencyConfig{Code: "sol", ToSmall: 1000000000}
	if got := ScalePayout(26500000, "SOL_SMALL", &sol); got != 0.0265 {
		t.Fatalf("unexpected sol payout %v", got)
	}
	if got := ScalePayout(math.NaN(), "SAT", nil); got != 0 {
		t.Fatalf("NaN payout should be 0, got %v", got)
	}
	if got := ScalePayout(100000000, "UNKNOWN", nil); got != 1 {
		t.Fatalf("unknown keys should scale by 1e8, got %v", got)
	}
}
