package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/projection"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
)

// Inputs is everything a report reads from the store.
type Inputs struct {
	Snapshot    *model.LeagueSnapshot
	Rewards     model.BlockRewardSettings
	MinWithdraw model.MinWithdrawSettings
	Settings    model.Settings
}

// LoadInputs reads the snapshot and user overrides. A missing snapshot is
// reported as store.ErrNotFound; missing overrides fall back to defaults.
func LoadInputs(ctx context.Context, st store.Store) (Inputs, error) {
	in := Inputs{
		Snapshot:    &model.LeagueSnapshot{},
		Rewards:     model.BlockRewardSettings{},
		MinWithdraw: model.MinWithdrawSettings{},
		Settings:    model.DefaultSettings(),
	}
	if err := st.Get(ctx, store.KeyLeagueData, in.Snapshot); err != nil {
		return in, err
	}
	if err := store.GetOr(ctx, st, store.KeyBlockRewardSettings, &in.Rewards); err != nil {
		return in, errors.Wrap(err, "failed loading block reward settings")
	}
	if err := store.GetOr(ctx, st, store.KeyMinWithdrawSettings, &in.MinWithdraw); err != nil {
		return in, errors.Wrap(err, "failed loading min withdraw settings")
	}
	if err := store.GetOr(ctx, st, store.KeySettings, &in.Settings); err != nil {
		return in, errors.Wrap(err, "failed loading settings")
	}
	return in, nil
}

type Report struct {
	Period   model.Period
	Fiat     model.FiatCurrency
	Earnings []model.EarningsRow
	Totals   projection.Totals
	Withdraw []model.WithdrawTimeResult
	Snapshot *model.LeagueSnapshot
}

func Build(in Inputs, period model.Period, prices model.PriceData) Report {
	earnings := projection.Project(in.Snapshot, period, prices.Prices, in.Rewards)
	return Report{
		Period:   period,
		Fiat:     prices.Fiat,
		Earnings: earnings,
		Totals:   projection.Total(earnings),
		Withdraw: projection.CalculateWithdrawTimes(in.Snapshot, in.Rewards, in.MinWithdraw),
		Snapshot: in.Snapshot,
	}
}

// Render writes the earnings and withdraw tables. Rows marked '*' are the
// best priced coin, '>' the coin currently mined.
func Render(w io.Writer, r Report) error {
	if r.Snapshot.Empty() {
		_, err := fmt.Fprintln(w, "no league data yet")
		return err
	}
	fmt.Fprintf(w, "League %s, mining %s, power %s, updated %s\n\n",
		orDash(r.Snapshot.LeagueID), orDash(r.Snapshot.CurrentlyMiningCurrency),
		FormatPower(r.Snapshot.TotalUserPower), r.Snapshot.Timestamp.Format("2006-01-02 15:04:05"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\tCOIN\tLEAGUE POWER\tSHARE\tPER BLOCK\t%s\t%s\n",
		strings.ToUpper(string(r.Period)), r.Fiat)
	for _, row := range r.Earnings {
		fiat := "-"
		if row.FiatValue != nil {
			fiat = FormatFiat(*row.FiatValue, r.Fiat)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f%%\t%s\t%s\t%s\n",
			marker(row), row.Currency, FormatPower(row.LeaguePower), row.PowerSharePct,
			FormatCrypto(row.EarningPerBlock, row.Currency),
			FormatCrypto(row.EarningPerPeriod, row.Currency), fiat)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "failed writing earnings table")
	}
	fmt.Fprintf(w, "\nTotal %s: %s\n\n", r.Period, FormatFiat(r.Totals.Fiat, r.Fiat))

	if len(r.Withdraw) == 0 {
		return nil
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COIN\tBALANCE\tMIN\tPROGRESS\tTIME TO WITHDRAW")
	for _, res := range r.Withdraw {
		progress := 0.0
		if res.MinWithdraw > 0 {
			progress = res.CurrentBalance / res.MinWithdraw * 100
			if progress > 100 {
				progress = 100
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n",
			res.DisplayName, FormatBalance(res.CurrentBalance), FormatBalance(res.MinWithdraw),
			progress, withdrawStatus(res))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "failed writing withdraw table")
	}
	if fastest, ok := projection.Fastest(r.Withdraw); ok {
		fmt.Fprintf(w, "\nFastest withdraw: %s in %s\n", fastest.DisplayName, FormatDuration(fastest.DaysFromCurrentBalance))
	}
	return nil
}

func marker(row model.EarningsRow) string {
	switch {
	case row.IsBest && row.IsCurrentlyMining:
		return "*>"
	case row.IsBest:
		return "*"
	case row.IsCurrentlyMining:
		return ">"
	}
	return ""
}

func withdrawStatus(res model.WithdrawTimeResult) string {
	switch {
	case !res.CanWithdraw:
		return "withdraw disabled"
	case res.AlreadyEligible:
		return "ready"
	case !finite(res.DaysFromCurrentBalance):
		return "never"
	}
	return FormatDuration(res.DaysFromCurrentBalance)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
