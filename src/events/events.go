package events

import (
	"github.com/onemorebsmith/league-calc/src/model"
)

type Kind string

const (
	KindPower            Kind = "power"
	KindPoolPower        Kind = "pool_power"
	KindBalance          Kind = "balance"
	KindGlobalSettings   Kind = "global_settings"
	KindUserSettings     Kind = "user_settings"
	KindCurrenciesConfig Kind = "currencies_config"
)

// wire command names as they appear in game socket frames
const (
	cmdPower          = "power"
	cmdPoolPower      = "pool_power_response"
	cmdBalance        = "balance"
	cmdGlobalSettings = "global_settings"
	cmdUserSettings   = "user_settings"
	cmdCurrencies     = "currencies_config"
)

var kindByCmd = map[string]Kind{
	cmdPower:          KindPower,
	cmdPoolPower:      KindPoolPower,
	"pool_power":      KindPoolPower,
	cmdBalance:        KindBalance,
	cmdGlobalSettings: KindGlobalSettings,
	cmdUserSettings:   KindUserSettings,
	cmdCurrencies:     KindCurrenciesConfig,
}

var cmdByKind = map[Kind]string{
	KindPower:            cmdPower,
	KindPoolPower:        cmdPoolPower,
	KindBalance:          cmdBalance,
	KindGlobalSettings:   cmdGlobalSettings,
	KindUserSettings:     cmdUserSettings,
	KindCurrenciesConfig: cmdCurrencies,
}

// Event is one validated message from a data source.
type Event interface {
	Kind() Kind
}

// PowerEvent - user's total mining power
type PowerEvent struct {
	Total   float64
	Penalty float64
}

// PoolPowerEvent - league power for a single currency
type PoolPowerEvent struct {
	Currency string
	Power    float64
	LeagueID string
}

type BalanceEvent struct {
	Balances model.UserBalances
}

// GlobalSettingsEvent - authoritative payout/power table for every currency
type GlobalSettingsEvent struct {
	Settings []model.GlobalSetting
}

// UserSettingsEvent - allocation split across mined currencies. A nil
// Allocation with a Marker only names the single currency being mined.
type UserSettingsEvent struct {
	Allocation model.MiningAllocation
	Marker     string
}

type CurrenciesConfigEvent struct {
	Configs []model.CurrencyConfig
}

func (PowerEvent) Kind() Kind            { return KindPower }
func (PoolPowerEvent) Kind() Kind        { return KindPoolPower }
func (BalanceEvent) Kind() Kind          { return KindBalance }
func (GlobalSettingsEvent) Kind() Kind   { return KindGlobalSettings }
func (UserSettingsEvent) Kind() Kind     { return KindUserSettings }
func (CurrenciesConfigEvent) Kind() Kind { return KindCurrenciesConfig }
