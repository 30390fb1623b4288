package projection

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onemorebsmith/league-calc/src/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func testSnapshot() *model.LeagueSnapshot {
	return &model.LeagueSnapshot{
		Currencies: []model.LeagueCurrency{
			{Currency: "BTC", LeaguePower: 1000, BlockPayout: 2, UserPower: 10},
			{Currency: "TRX", LeaguePower: 500, BlockPayout: 10},
			{Currency: "POL", LeaguePower: 2000, BlockPayout: 7},
			{Currency: "RLT", LeaguePower: 100, BlockPayout: 3, IsInGameCurrency: true},
		},
		TotalUserPower:          10,
		CurrentlyMiningCurrency: "BTC",
		CurrencyConfigs:         model.DefaultCurrencyConfigs(),
		UserBalances:            model.UserBalances{},
	}
}

func TestProjectEarningsDeterminism(t *testing.T) {
	rows := Project(testSnapshot(), model.PeriodDaily, nil, nil)
	btc := rows[0]
	if !approx(btc.PowerSharePct, 1) {
		t.Fatalf("unexpected power share %v", btc.PowerSharePct)
	}
	if !approx(btc.EarningPerBlock, 0.02) {
		t.Fatalf("unexpected earning per block %v", btc.EarningPerBlock)
	}
	if !approx(btc.EarningPerPeriod, 2.88) {
		t.Fatalf("unexpected daily earning %v", btc.EarningPerPeriod)
	}
	if btc.FiatValue != nil {
		t.Fatalf("no prices means no fiat value")
	}
	if !btc.IsCurrentlyMining || rows[1].IsCurrentlyMining {
		t.Fatalf("only BTC should be flagged as mining")
	}
	if !approx(btc.UserAllocationPct, 100) {
		t.Fatalf("unexpected allocation pct %v", btc.UserAllocationPct)
	}

	for _, p := range model.Periods {
		rows := Project(testSnapshot(), p, nil, nil)
		want := 0.02 * model.BlocksPerPeriod[p]
		if !approx(rows[0].EarningPerPeriod, want) {
			t.Fatalf("%s: got %v want %v", p, rows[0].EarningPerPeriod, want)
		}
	}
}

func TestProjectFiatAndBestCoin(t *testing.T) {
	prices := map[string]float64{"BTC": 10, "TRX": 2, "MATIC": 1, "RLT": 1000}
	rows := Project(testSnapshot(), model.PeriodDaily, prices, nil)

	// BTC 2.88*10 = 28.8, TRX 10*(10/500)*144*2 = 57.6, POL 7*(10/2000)*144*1 = 5.04
	expected := map[string]float64{"BTC": 28.8, "TRX": 57.6, "POL": 5.04}
	for _, r := range rows {
		if r.Currency == "RLT" {
			if r.FiatValue != nil {
				t.Fatalf("game token must never carry a fiat value")
			}
			continue
		}
		if r.FiatValue == nil || !approx(*r.FiatValue, expected[r.Currency]) {
			t.Fatalf("%s: unexpected fiat %v", r.Currency, r.FiatValue)
		}
	}
	if BestCoin(rows) != 1 || !rows[1].IsBest || rows[0].IsBest {
		t.Fatalf("TRX should be the best coin")
	}

	totals := Total(rows)
	if !approx(totals.Fiat, 28.8+57.6+5.04) {
		t.Fatalf("unexpected fiat total %v", totals.Fiat)
	}
	if !approx(totals.Crypto["RLT"], 3*(10.0/100)*144) {
		t.Fatalf("unexpected RLT total %v", totals.Crypto["RLT"])
	}
}

func TestProjectZeroPriceIsPriced(t *testing.T) {
	rows := Project(testSnapshot(), model.PeriodDaily, map[string]float64{"BTC": 0, "POL": 0, "MATIC": 3}, nil)
	btc := rows[0]
	if btc.FiatValue == nil || *btc.FiatValue != 0 {
		t.Fatalf("a quoted zero price should give a zero fiat value, got %v", btc.FiatValue)
	}
	if rows[1].FiatValue != nil {
		t.Fatalf("TRX has no quote and should carry no fiat value")
	}
	// POL 7*(10/2000)*144*3 from the feed alias
	if rows[2].FiatValue == nil || !approx(*rows[2].FiatValue, 15.12) {
		t.Fatalf("positive alias quote should win, got %v", rows[2].FiatValue)
	}
	if BestCoin(rows) != 2 {
		t.Fatalf("POL should be the best coin")
	}
}

func TestBestCoinTiesGoToFirst(t *testing.T) {
	v := 5.0
	rows := []model.EarningsRow{
		{Currency: "A", FiatValue: nil},
		{Currency: "B", FiatValue: &v},
		{Currency: "C", FiatValue: &v},
		{Currency: "RLT", FiatValue: &v, IsGameToken: true},
	}
	if got := BestCoin(rows); got != 1 {
		t.Fatalf("expected first of tied rows, got %d", got)
	}
	if got := BestCoin([]model.EarningsRow{{Currency: "A"}}); got != -1 {
		t.Fatalf("unpriced rows have no best coin, got %d", got)
	}
}

func TestProjectGuardsNonFinite(t *testing.T) {
	snap := &model.LeagueSnapshot{
		Currencies: []model.LeagueCurrency{
			{Currency: "BTC", LeaguePower: math.NaN(), BlockPayout: 2},
			{Currency: "ETH", LeaguePower: 100, BlockPayout: math.Inf(1)},
			{Currency: "SOL", LeaguePower: 0, BlockPayout: 1},
		},
		TotalUserPower: 10,
	}
	rows := Project(snap, model.PeriodWeekly, map[string]float64{"ETH": math.NaN()}, model.BlockRewardSettings{"SOL": math.NaN()})
	for _, r := range rows {
		for _, v := range []float64{r.PowerSharePct, r.EarningPerBlock, r.EarningPerPeriod, r.BlockReward, r.LeaguePower} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: non-finite value leaked: %+v", r.Currency, r)
			}
		}
		if r.FiatValue != nil {
			t.Fatalf("%s: NaN price should not produce a fiat value", r.Currency)
		}
	}
}

func TestProjectUsesOverrides(t *testing.T) {
	rows := Project(testSnapshot(), model.PeriodDaily, nil, model.BlockRewardSettings{"BTC": 4})
	if rows[0].BlockReward != 4 || !approx(rows[0].EarningPerPeriod, 5.76) {
		t.Fatalf("override not applied: %+v", rows[0])
	}
}

func TestWithdrawEligibility(t *testing.T) {
	snap := testSnapshot()
	snap.UserBalances = model.UserBalances{"btc": "0.001"}
	results := CalculateWithdrawTimes(snap, nil, model.MinWithdrawSettings{"BTC": 0.00085})
	var btc model.WithdrawTimeResult
	for _, r := range results {
		if r.Currency == "BTC" {
			btc = r
		}
	}
	if !btc.AlreadyEligible || btc.DaysFromCurrentBalance != 0 || btc.RemainingToEarn != 0 {
		t.Fatalf("expected BTC to be eligible now: %+v", btc)
	}
	if !approx(btc.EarningPerDay, 2.88) || !approx(btc.DaysFromZero, 0.00085/2.88) {
		t.Fatalf("unexpected earning rate: %+v", btc)
	}
}

func TestWithdrawTimesAndOrder(t *testing.T) {
	configs := model.DefaultCurrencyConfigs()
	for i := range configs {
		if configs[i].Code == "matic" {
			configs[i].DisabledWithdraw = true
		}
	}
	snap := &model.LeagueSnapshot{
		Currencies: []model.LeagueCurrency{
			{Currency: "POL", LeaguePower: 10, BlockPayout: 100},
			{Currency: "ETH", LeaguePower: 0, BlockPayout: 1},
			{Currency: "TRX", LeaguePower: 500, BlockPayout: 10, UserPower: 10},
			{Currency: "BTC", LeaguePower: 1000, BlockPayout: 2},
			{Currency: "RLT", LeaguePower: 100, BlockPayout: 3, IsInGameCurrency: true},
			{Currency: "ALGO", LeaguePower: 100, BlockPayout: 3},
		},
		TotalUserPower:  10,
		CurrencyConfigs: configs,
		// TRX raw integer: 299607825300 / 1e10 = 29.96078253
		UserBalances: model.UserBalances{"trx": "299607825300"},
	}
	results := CalculateWithdrawTimes(snap, nil, nil)
	order := []string{}
	for _, r := range results {
		order = append(order, r.Currency)
	}
	// TRX earns 28.8/day from 29.96 toward 300, BTC 2.88/day toward 0.00085,
	// ETH has no league power, POL cannot be withdrawn
	if d := cmp.Diff([]string{"BTC", "TRX", "ETH", "POL"}, order); d != "" {
		t.Fatalf("unexpected order: %s", d)
	}

	trx := results[1]
	if !approx(trx.CurrentBalance, 29.96078253) {
		t.Fatalf("unexpected trx balance %v", trx.CurrentBalance)
	}
	wantDays := (300 - 29.96078253) / 28.8
	if !approx(trx.DaysFromCurrentBalance, wantDays) || !approx(trx.HoursFromCurrentBalance, wantDays*24) {
		t.Fatalf("unexpected trx wait: %+v", trx)
	}
	if !trx.IsMining || results[0].IsMining {
		t.Fatalf("mining flag should follow allocated power")
	}
	eth := results[2]
	if !math.IsInf(eth.DaysFromZero, 1) || !math.IsInf(eth.DaysFromCurrentBalance, 1) {
		t.Fatalf("no league power should never reach the minimum: %+v", eth)
	}

	fastest, ok := Fastest(results)
	if !ok || fastest.Currency != "BTC" {
		t.Fatalf("unexpected fastest %+v", fastest)
	}
}
