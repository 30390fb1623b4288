package daemon

import (
	"context"
	"time"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
	"github.com/onemorebsmith/league-calc/src/pricefeed"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func startPriceRefresher(ctx context.Context, client *pricefeed.Client, st store.Store,
	fiat model.FiatCurrency, delay time.Duration, logger *zap.Logger) {
	logger = logger.Named("prices")
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		if err := refreshPrices(ctx, client, st, fiat); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn("price refresh failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// refreshPrices prices every non game token in the current snapshot and
// caches the result for the report.
func refreshPrices(ctx context.Context, client *pricefeed.Client, st store.Store, fiat model.FiatCurrency) error {
	snap := &model.LeagueSnapshot{}
	if err := st.Get(ctx, store.KeyLeagueData, snap); err != nil {
		return err
	}
	var symbols []string
	for _, c := range snap.Currencies {
		if c.IsInGameCurrency || normalize.IsGameToken(c.Currency) {
			continue
		}
		symbols = append(symbols, c.Currency)
	}
	if len(symbols) == 0 {
		return nil
	}
	prices := client.FetchPrices(ctx, symbols, fiat)
	if len(prices.Prices) == 0 {
		return errors.Wrapf(pricefeed.ErrNoPrice, "no prices for %v", symbols)
	}
	return errors.Wrap(st.Set(ctx, store.KeyPriceData, prices), "failed caching prices")
}
