package reconciler

import (
	"time"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
	"github.com/pkg/errors"
)

var ErrWouldRegress = errors.New("reconcile would blank a populated snapshot")

// Inputs is everything a reconcile run reads. Settings is only set when the
// run was triggered by an authoritative global settings payload.
type Inputs struct {
	PoolPower    model.PoolPowerState
	UserPower    float64
	Allocation   model.MiningAllocation
	ActiveMarker string // legacy single-currency mining marker
	Balances     model.UserBalances
	Configs      []model.CurrencyConfig
	LeagueID     string
	Previous     *model.LeagueSnapshot
	Settings     []model.GlobalSetting
	Now          time.Time
}

// Reconcile merges the partial state into a fresh snapshot. It is a pure
// function of its inputs; the only error is ErrWouldRegress.
func Reconcile(in Inputs) (*model.LeagueSnapshot, error) {
	userPower := nonNegative(in.UserPower)

	all := make([]model.LeagueCurrency, 0, len(normalize.KnownCurrencyKeys()))
	for _, key := range candidateKeys(in.Settings) {
		symbol := normalize.ToCanonicalSymbol(key)
		code := normalize.CodeForSymbol(symbol)
		setting, hasSetting := findSetting(in.Settings, key)

		var cfg *model.CurrencyConfig
		if c, ok := model.FindConfig(in.Configs, code); ok {
			cfg = &c
		}

		row := model.LeagueCurrency{
			Currency:         symbol,
			Code:             code,
			RawKey:           key,
			BlockPayout:      blockPayout(key, symbol, setting, hasSetting, cfg, in.Previous),
			LeaguePower:      leaguePower(key, setting, hasSetting, in.PoolPower),
			UserPower:        allocatedPower(key, userPower, in.Allocation, in.ActiveMarker),
			IsInGameCurrency: normalize.IsGameToken(symbol) || (cfg != nil && cfg.IsInGameCurrency),
		}
		all = append(all, row)
	}

	rows := make([]model.LeagueCurrency, 0, len(all))
	for _, r := range all {
		if r.LeaguePower > 0 {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		if !in.Previous.Empty() {
			return nil, ErrWouldRegress
		}
		// degenerate startup: nothing has power yet and nothing was written,
		// keep every candidate
		rows = all
	}

	snap := &model.LeagueSnapshot{
		Currencies:      rows,
		TotalUserPower:  userPower,
		LeagueID:        leagueID(in),
		CurrencyConfigs: in.Configs,
		UserBalances:    in.Balances,
		Timestamp:       in.Now,
	}
	for _, r := range rows {
		if r.LeaguePower > snap.MaxPower {
			snap.MaxPower = r.LeaguePower
		}
	}
	snap.CurrentlyMiningCurrency = currentlyMining(in, rows)
	return snap, nil
}

func candidateKeys(settings []model.GlobalSetting) []string {
	if len(settings) == 0 {
		return normalize.KnownCurrencyKeys()
	}
	seen := map[string]bool{}
	keys := make([]string, 0, len(settings))
	for _, s := range settings {
		if s.Currency == "" || seen[s.Currency] {
			continue
		}
		seen[s.Currency] = true
		keys = append(keys, s.Currency)
	}
	return keys
}

func findSetting(settings []model.GlobalSetting, key string) (model.GlobalSetting, bool) {
	for _, s := range settings {
		if s.Currency == key {
			return s, true
		}
	}
	return model.GlobalSetting{}, false
}

// blockPayout resolves the per-block reward: authoritative settings, then the
// previous snapshot's positive value, then the default table, then zero.
func blockPayout(key, symbol string, setting model.GlobalSetting, hasSetting bool,
	cfg *model.CurrencyConfig, prev *model.LeagueSnapshot) float64 {
	if hasSetting {
		if v := normalize.ScalePayout(setting.BlockSize, key, cfg); v > 0 {
			return v
		}
	}
	if prevRow, ok := prev.Find(symbol); ok && normalize.Finite(prevRow.BlockPayout) > 0 {
		return prevRow.BlockPayout
	}
	if v, ok := model.DefaultBlockRewards()[symbol]; ok {
		return v
	}
	return 0
}

func leaguePower(key string, setting model.GlobalSetting, hasSetting bool, pool model.PoolPowerState) float64 {
	if hasSetting {
		return nonNegative(setting.PoolPowerForCurrency)
	}
	if v, ok := pool[key]; ok {
		return nonNegative(v)
	}
	symbol := normalize.ToCanonicalSymbol(key)
	for _, alt := range []string{symbol, normalize.CodeForSymbol(symbol)} {
		if v, ok := pool[alt]; ok {
			return nonNegative(v)
		}
	}
	return 0
}

func allocatedPower(key string, total float64, allocation model.MiningAllocation, marker string) float64 {
	if len(allocation) > 0 {
		for _, e := range allocation {
			if normalize.SameCurrency(e.CurrencyKey, key) {
				return nonNegative(total * nonNegative(e.Percent) / 100)
			}
		}
		return 0
	}
	if marker != "" && normalize.SameCurrency(marker, key) {
		return total
	}
	return 0
}

func currentlyMining(in Inputs, rows []model.LeagueCurrency) string {
	if active := in.Allocation.Active(); active != "" {
		return normalize.ToCanonicalSymbol(active)
	}
	if in.ActiveMarker != "" {
		return normalize.ToCanonicalSymbol(in.ActiveMarker)
	}
	if len(rows) > 0 {
		return rows[0].Currency
	}
	return normalize.DefaultSymbol
}

func leagueID(in Inputs) string {
	for _, s := range in.Settings {
		if s.LeagueID != "" {
			return s.LeagueID
		}
	}
	if in.LeagueID != "" {
		return in.LeagueID
	}
	if in.Previous != nil {
		return in.Previous.LeagueID
	}
	return ""
}

func nonNegative(v float64) float64 {
	v = normalize.Finite(v)
	if v < 0 {
		return 0
	}
	return v
}
