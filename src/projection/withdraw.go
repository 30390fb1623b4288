package projection

import (
	"math"
	"sort"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
)

// CalculateWithdrawTimes estimates how long each mineable currency takes to
// reach its minimum withdrawal. Results are ordered disabled-last, then
// reachable before unreachable, then fastest first.
func CalculateWithdrawTimes(snap *model.LeagueSnapshot, rewards model.BlockRewardSettings,
	minimums model.MinWithdrawSettings) []model.WithdrawTimeResult {
	if snap == nil {
		return nil
	}
	userPower := safe(snap.TotalUserPower)

	results := []model.WithdrawTimeResult{}
	for _, c := range snap.Currencies {
		if c.IsInGameCurrency || normalize.IsGameToken(c.Currency) {
			continue
		}
		cfg, ok := model.FindConfig(snap.CurrencyConfigs, normalize.CodeForSymbol(c.Currency))
		if !ok || !cfg.IsCanBeMined {
			continue
		}

		balance := normalize.ScaleRawBalance(snap.UserBalances[cfg.Code], cfg)
		leaguePower := safe(c.LeaguePower)
		reward := safe(c.BlockPayout)
		if v, ok := rewards[c.Currency]; ok {
			reward = safe(v)
		}
		perDay := 0.0
		if leaguePower > 0 {
			perDay = safe(reward * (userPower / leaguePower) * model.BlocksPerDay)
		}

		displayName := cfg.Label()
		minimum := cfg.Min
		if v, ok := minimums[displayName]; ok {
			minimum = v
		} else if v, ok := minimums[c.Currency]; ok {
			minimum = v
		}
		minimum = safe(minimum)

		eligible := balance >= minimum
		daysFromZero := math.Inf(1)
		if perDay > 0 {
			daysFromZero = minimum / perDay
		}
		remaining := math.Max(0, minimum-balance)
		daysFromBalance := 0.0
		if !eligible {
			daysFromBalance = math.Inf(1)
			if perDay > 0 {
				daysFromBalance = remaining / perDay
			}
		}

		results = append(results, model.WithdrawTimeResult{
			Currency:                c.Currency,
			DisplayName:             displayName,
			MinWithdraw:             minimum,
			CurrentBalance:          balance,
			RemainingToEarn:         remaining,
			EarningPerDay:           perDay,
			DaysFromZero:            daysFromZero,
			DaysFromCurrentBalance:  daysFromBalance,
			HoursFromCurrentBalance: daysFromBalance * 24,
			CanWithdraw:             !cfg.DisabledWithdraw,
			IsMining:                c.UserPower > 0,
			AlreadyEligible:         eligible,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CanWithdraw != b.CanWithdraw {
			return a.CanWithdraw
		}
		aFinite, bFinite := !math.IsInf(a.DaysFromCurrentBalance, 0), !math.IsInf(b.DaysFromCurrentBalance, 0)
		if aFinite != bFinite {
			return aFinite
		}
		return a.DaysFromCurrentBalance < b.DaysFromCurrentBalance
	})
	return results
}

// Fastest returns the first withdrawable result with a finite wait.
func Fastest(results []model.WithdrawTimeResult) (model.WithdrawTimeResult, bool) {
	for _, r := range results {
		if r.CanWithdraw && !math.IsInf(r.DaysFromCurrentBalance, 0) {
			return r, true
		}
	}
	return model.WithdrawTimeResult{}, false
}
