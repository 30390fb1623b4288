package daemon

import (
	"time"

	"github.com/onemorebsmith/league-calc/src/common"
)

type DaemonConfig struct {
	common.CommonConfig `yaml:",inline"`

	WSURL              string        `yaml:"ws_url"`
	LeagueAPIBase      string        `yaml:"league_api_base"`
	AuthToken          string        `yaml:"auth_token"`
	CSRFToken          string        `yaml:"csrf_token"`
	LeaguePollInterval time.Duration `yaml:"league_poll_interval"`

	CurrenciesAPIURL  string `yaml:"currencies_api_url"`
	ConfigRefreshCron string `yaml:"config_refresh_cron"`

	PriceAPIBase         string        `yaml:"price_api_base"`
	Fiat                 string        `yaml:"fiat"`
	PriceRefreshInterval time.Duration `yaml:"price_refresh_interval"`

	HistoryKeep          int64         `yaml:"history_keep"`
	HistoryPruneInterval time.Duration `yaml:"history_prune_interval"`
}

func (c DaemonConfig) priceInterval() time.Duration {
	if c.PriceRefreshInterval <= 0 {
		return 5 * time.Minute
	}
	return c.PriceRefreshInterval
}

func (c DaemonConfig) pruneInterval() time.Duration {
	if c.HistoryPruneInterval <= 0 {
		return time.Hour
	}
	return c.HistoryPruneInterval
}
