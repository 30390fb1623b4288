package model

// BlockRewardSettings - per-block reward by display symbol
type BlockRewardSettings map[string]float64

// MinWithdrawSettings - withdrawal threshold by display symbol
type MinWithdrawSettings map[string]float64

// DefaultBlockRewards is the last-resort payout table used when neither the
// league settings nor a previous snapshot know a currency's payout.
func DefaultBlockRewards() BlockRewardSettings {
	return BlockRewardSettings{
		"BTC":  0.0000176,
		"ETH":  0.00061,
		"SOL":  0.028,
		"DOGE": 12.03,
		"BNB":  0.00127,
		"LTC":  0.0084,
		"XRP":  0.52,
		"TRX":  10.83,
		"POL":  7.71,
		"RLT":  3.33,
		"RST":  204,
		"HMT":  1528,
	}
}

func DefaultMinWithdraw() MinWithdrawSettings {
	return MinWithdrawSettings{
		"BTC":  0.00085,
		"ETH":  0.014,
		"SOL":  0.6,
		"DOGE": 220,
		"BNB":  0.06,
		"LTC":  5,
		"XRP":  40,
		"TRX":  300,
		"POL":  300,
	}
}

// Settings - user preferences for the report
type Settings struct {
	FiatCurrency  FiatCurrency `json:"fiatCurrency"`
	DefaultPeriod Period       `json:"defaultPeriod"`
}

func DefaultSettings() Settings {
	return Settings{FiatCurrency: "USDT", DefaultPeriod: PeriodDaily}
}
