package model

// CurrencyConfig - per-currency wallet metadata as served by the currencies
// config endpoint. Field names match the wire format so configs round trip
// through the store unchanged.
type CurrencyConfig struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	DisplayName        string  `json:"display_name"`
	BalanceKey         string  `json:"balance_key"`
	Min                float64 `json:"min"`
	ToSmall            int64   `json:"to_small"`
	PrecisionToBalance int32   `json:"precision_to_balance"`
	IsCanBeMined       bool    `json:"is_can_be_mined"`
	DisabledWithdraw   bool    `json:"disabled_withdraw"`
	IsInGameCurrency   bool    `json:"is_in_game_currency"`
}

// Label is the symbol shown to the user for this currency.
func (c CurrencyConfig) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

func MineableOnly(configs []CurrencyConfig) []CurrencyConfig {
	out := make([]CurrencyConfig, 0, len(configs))
	for _, c := range configs {
		if c.IsCanBeMined {
			out = append(out, c)
		}
	}
	return out
}

func FindConfig(configs []CurrencyConfig, code string) (CurrencyConfig, bool) {
	for _, c := range configs {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencyConfig{}, false
}

// DefaultCurrencyConfigs seeds the store on first start, before the config
// endpoint has been reached.
func DefaultCurrencyConfigs() []CurrencyConfig {
	return []CurrencyConfig{
		{Code: "btc", Name: "BTC", DisplayName: "BTC", BalanceKey: "SAT", Min: 0.00085, ToSmall: 100000000, PrecisionToBalance: 10, IsCanBeMined: true},
		{Code: "eth", Name: "ETH", DisplayName: "ETH", BalanceKey: "ETH_SMALL", Min: 0.014, ToSmall: 10000000000, PrecisionToBalance: 10, IsCanBeMined: true},
		{Code: "sol", Name: "SOL", DisplayName: "SOL", BalanceKey: "SOL_SMALL", Min: 0.6, ToSmall: 1000000000, PrecisionToBalance: 9, IsCanBeMined: true},
		{Code: "doge", Name: "DOGE", DisplayName: "DOGE", BalanceKey: "DOGE_SMALL", Min: 220, ToSmall: 10000, PrecisionToBalance: 4, IsCanBeMined: true},
		{Code: "bnb", Name: "BNB", DisplayName: "BNB", BalanceKey: "BNB_SMALL", Min: 0.06, ToSmall: 10000000000, PrecisionToBalance: 10, IsCanBeMined: true},
		{Code: "ltc", Name: "LTC", DisplayName: "LTC", BalanceKey: "LTC_SMALL", Min: 5, ToSmall: 100000000, PrecisionToBalance: 8, IsCanBeMined: true},
		{Code: "xrp", Name: "XRP", DisplayName: "XRP", BalanceKey: "XRP_SMALL", Min: 40, ToSmall: 1000000, PrecisionToBalance: 6, IsCanBeMined: true},
		{Code: "trx", Name: "TRX", DisplayName: "TRX", BalanceKey: "TRX_SMALL", Min: 300, ToSmall: 10000000000, PrecisionToBalance: 10, IsCanBeMined: true},
		{Code: "matic", Name: "MATIC", DisplayName: "POL", BalanceKey: "MATIC_SMALL", Min: 300, ToSmall: 10000000000, PrecisionToBalance: 10, IsCanBeMined: true},
		{Code: "rlt", Name: "RLT", DisplayName: "RLT", BalanceKey: "RLT", ToSmall: 1000000, PrecisionToBalance: 6, IsCanBeMined: true, DisabledWithdraw: true, IsInGameCurrency: true},
		{Code: "rst", Name: "RST", DisplayName: "RST", BalanceKey: "RST", ToSmall: 1000000, PrecisionToBalance: 6, IsCanBeMined: true, DisabledWithdraw: true, IsInGameCurrency: true},
		{Code: "hmt", Name: "HMT", DisplayName: "HMT", BalanceKey: "HMT", ToSmall: 1000000, PrecisionToBalance: 6, IsCanBeMined: true, DisabledWithdraw: true, IsInGameCurrency: true},
	}
}
