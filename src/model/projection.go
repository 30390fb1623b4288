package model

import "time"

type Period string

const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// BlockTime is the fixed league block cadence.
const BlockTime = 10 * time.Minute

const BlocksPerDay = 144

var BlocksPerPeriod = map[Period]float64{
	PeriodHourly:  6,
	PeriodDaily:   144,
	PeriodWeekly:  1008,
	PeriodMonthly: 4320,
}

var Periods = []Period{PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly}

func ParsePeriod(raw string) (Period, bool) {
	p := Period(raw)
	_, ok := BlocksPerPeriod[p]
	return p, ok
}

type EarningsRow struct {
	Currency           string
	LeaguePower        float64
	BlockReward        float64
	EarningPerBlock    float64
	EarningPerPeriod   float64
	FiatValue          *float64 // nil when unpriced or a game token
	PowerSharePct      float64
	UserAllocationPct  float64
	UserPowerAllocated float64
	IsGameToken        bool
	IsCurrentlyMining  bool
	IsBest             bool
}

type WithdrawTimeResult struct {
	Currency                string
	DisplayName             string
	MinWithdraw             float64
	CurrentBalance          float64
	RemainingToEarn         float64
	EarningPerDay           float64
	DaysFromZero            float64
	DaysFromCurrentBalance  float64
	HoursFromCurrentBalance float64
	CanWithdraw             bool
	IsMining                bool
	AlreadyEligible         bool
}

type FiatCurrency string

var SupportedFiats = []FiatCurrency{"USDT", "TRY", "EUR", "GBP", "RUB", "BRL"}

func IsSupportedFiat(f FiatCurrency) bool {
	for _, s := range SupportedFiats {
		if s == f {
			return true
		}
	}
	return false
}

type PriceData struct {
	Prices    map[string]float64 `json:"prices"`
	Fiat      FiatCurrency       `json:"fiat"`
	Timestamp time.Time          `json:"timestamp"`
}
