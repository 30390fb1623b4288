package projection

import (
	"math"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
)

// priceAliases maps a display symbol onto the symbol the price feed uses.
var priceAliases = map[string]string{
	"POL": "MATIC",
}

// Totals sums one period's projected earnings across every row.
type Totals struct {
	Crypto map[string]float64
	Fiat   float64
}

// Project computes one earnings row per snapshot currency for the period.
// Power share is the user's total power over the currency's league power,
// i.e. the share if the whole rig pointed at that pool.
func Project(snap *model.LeagueSnapshot, period model.Period, prices map[string]float64,
	overrides model.BlockRewardSettings) []model.EarningsRow {
	if snap == nil {
		return nil
	}
	blocks, ok := model.BlocksPerPeriod[period]
	if !ok {
		blocks = model.BlocksPerPeriod[model.PeriodDaily]
	}
	userPower := safe(snap.TotalUserPower)

	rows := make([]model.EarningsRow, 0, len(snap.Currencies))
	for _, c := range snap.Currencies {
		leaguePower := safe(c.LeaguePower)
		reward := safe(c.BlockPayout)
		if v, ok := overrides[c.Currency]; ok {
			reward = safe(v)
		}

		share := 0.0
		if leaguePower > 0 {
			share = safe(userPower / leaguePower * 100)
		}
		perBlock := safe(reward * share / 100)
		perPeriod := safe(perBlock * blocks)

		allocated := safe(c.UserPower)
		allocationPct := 0.0
		if userPower > 0 {
			allocationPct = safe(allocated / userPower * 100)
		}

		gameToken := c.IsInGameCurrency || normalize.IsGameToken(c.Currency)
		row := model.EarningsRow{
			Currency:           c.Currency,
			LeaguePower:        leaguePower,
			BlockReward:        reward,
			EarningPerBlock:    perBlock,
			EarningPerPeriod:   perPeriod,
			PowerSharePct:      share,
			UserAllocationPct:  allocationPct,
			UserPowerAllocated: allocated,
			IsGameToken:        gameToken,
			IsCurrentlyMining:  allocated > 0 || (snap.CurrentlyMiningCurrency != "" && normalize.SameCurrency(c.Currency, snap.CurrentlyMiningCurrency)),
		}
		if !gameToken {
			if price, ok := lookupPrice(prices, c.Currency); ok {
				fiat := safe(perPeriod * price)
				row.FiatValue = &fiat
			}
		}
		rows = append(rows, row)
	}

	if best := BestCoin(rows); best >= 0 {
		rows[best].IsBest = true
	}
	return rows
}

// lookupPrice reports a finite quoted price for symbol, zero included. The
// feed's alias wins when it carries a positive quote.
func lookupPrice(prices map[string]float64, symbol string) (float64, bool) {
	alias, aliased := priceAliases[symbol]
	if aliased {
		if p, ok := prices[alias]; ok && finite(p) && p > 0 {
			return p, true
		}
	}
	if p, ok := prices[symbol]; ok && finite(p) {
		return p, true
	}
	if aliased {
		if p, ok := prices[alias]; ok && finite(p) {
			return p, true
		}
	}
	return 0, false
}

// BestCoin returns the index of the priced, non game token row with the
// highest fiat value, or -1. Ties go to the first row.
func BestCoin(rows []model.EarningsRow) int {
	best := -1
	for i, r := range rows {
		if r.IsGameToken || r.FiatValue == nil {
			continue
		}
		if best < 0 || *r.FiatValue > *rows[best].FiatValue {
			best = i
		}
	}
	return best
}

func Total(rows []model.EarningsRow) Totals {
	t := Totals{Crypto: map[string]float64{}}
	for _, r := range rows {
		t.Crypto[r.Currency] += r.EarningPerPeriod
		if r.FiatValue != nil {
			t.Fiat += *r.FiatValue
		}
	}
	return t
}

// safe substitutes 0 for NaN and infinities.
func safe(v float64) float64 {
	return normalize.Finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
