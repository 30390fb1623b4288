package model

import "time"

// PoolPowerState - league-wide power per raw currency key
type PoolPowerState map[string]float64

// UserBalances - balance per canonical currency code. Values are either
// human-scaled decimals ("29.960782") or raw integers ("299607825300").
type UserBalances map[string]string

type AllocationEntry struct {
	CurrencyKey string  `json:"currency"`
	Percent     float64 `json:"percent"`
	IsDefault   bool    `json:"is_default_currency,omitempty"`
}

type MiningAllocation []AllocationEntry

// Active returns the first currency key with a non-zero share.
func (m MiningAllocation) Active() string {
	for _, e := range m {
		if e.Percent > 0 {
			return e.CurrencyKey
		}
	}
	return ""
}

// GlobalSetting - one entry of the authoritative per-league settings payload.
// BlockSize is in the currency's smallest unit.
type GlobalSetting struct {
	Currency             string  `json:"currency"`
	BlockSize            float64 `json:"block_size"`
	PoolPowerForCurrency float64 `json:"pool_power_for_currency"`
	LeagueID             string  `json:"league_id,omitempty"`
}

type LeagueCurrency struct {
	Currency         string  `json:"currency"` // display symbol
	Code             string  `json:"code"`
	RawKey           string  `json:"raw_key"`
	LeaguePower      float64 `json:"total_block_power"`
	UserPower        float64 `json:"user_power"`
	BlockPayout      float64 `json:"block_payout"`
	IsInGameCurrency bool    `json:"is_in_game_currency"`
}

// LeagueSnapshot - the reconciled view of current league and mining state
type LeagueSnapshot struct {
	Currencies              []LeagueCurrency `json:"currencies"`
	MaxPower                float64          `json:"max_power"`
	TotalUserPower          float64          `json:"user_max_power"`
	LeagueID                string           `json:"league_id,omitempty"`
	CurrentlyMiningCurrency string           `json:"current_mining_currency"`
	CurrencyConfigs         []CurrencyConfig `json:"currencies_config"`
	UserBalances            UserBalances     `json:"user_balances"`
	Timestamp               time.Time        `json:"timestamp"`
}

func (s *LeagueSnapshot) Empty() bool {
	return s == nil || len(s.Currencies) == 0
}

// Find returns the row for a display symbol.
func (s *LeagueSnapshot) Find(symbol string) (LeagueCurrency, bool) {
	if s == nil {
		return LeagueCurrency{}, false
	}
	for _, c := range s.Currencies {
		if c.Currency == symbol {
			return c, true
		}
	}
	return LeagueCurrency{}, false
}
