package main

import (
	"context"
	"flag"
	"io/ioutil"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/onemorebsmith/league-calc/src/bridge"
	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/daemon"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
	"github.com/onemorebsmith/league-calc/src/pricefeed"
	"github.com/onemorebsmith/league-calc/src/report"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

func main() {
	cfg := daemon.DaemonConfig{}
	pwd, _ := os.Getwd()
	fullPath := path.Join(pwd, "config.yaml")
	if rawCfg, err := ioutil.ReadFile(fullPath); err == nil {
		if err := yaml.Unmarshal(rawCfg, &cfg); err != nil {
			log.Printf("failed parsing config file: %s", err)
			os.Exit(1)
		}
	}

	var period, fiat, bridgeURL string
	var refresh bool
	flag.StringVar(&period, "period", "", "hourly, daily, weekly or monthly, default from settings")
	flag.StringVar(&fiat, "fiat", "", "USDT TRY EUR GBP RUB or BRL, default from settings")
	flag.StringVar(&bridgeURL, "bridge", "", "read the snapshot from a running daemon, e.g. `http://localhost:2115`")
	flag.BoolVar(&refresh, "refresh", false, "ask the daemon for a fresh snapshot first")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "store backend: memory, redis or sqlite")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "path of the sqlite database file")
	flag.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "address of the redis server")
	flag.Parse()

	logger := common.ConfigureZap(zap.WarnLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, cfg, period, fiat, bridgeURL, refresh, logger); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg daemon.DaemonConfig, period, fiat, bridgeURL string,
	refresh bool, logger *zap.Logger) error {
	st, err := store.Open(ctx, cfg.CommonConfig, logger)
	if err != nil {
		return errors.Wrap(err, "failed opening store")
	}
	defer st.Close()

	in, err := report.LoadInputs(ctx, st)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if bridgeURL != "" && (refresh || in.Snapshot.Empty()) {
		snap, err := bridge.NewClient(bridgeURL, cfg.Timeout()).LeagueData(ctx, refresh)
		if err != nil {
			return errors.Wrap(err, "failed reading snapshot from bridge")
		}
		in.Snapshot = snap
	}

	p := in.Settings.DefaultPeriod
	if period != "" {
		parsed, ok := model.ParsePeriod(period)
		if !ok {
			return errors.Errorf("unknown period %q", period)
		}
		p = parsed
	}
	f := in.Settings.FiatCurrency
	if fiat != "" {
		f = model.FiatCurrency(strings.ToUpper(fiat))
	}

	prices := fetchPrices(ctx, cfg, st, in.Snapshot, f, logger)
	return report.Render(os.Stdout, report.Build(in, p, prices))
}

// fetchPrices asks the price api first and falls back to the prices the
// daemon cached.
func fetchPrices(ctx context.Context, cfg daemon.DaemonConfig, st store.Store, snap *model.LeagueSnapshot,
	fiat model.FiatCurrency, logger *zap.Logger) model.PriceData {
	var symbols []string
	if snap != nil {
		for _, c := range snap.Currencies {
			if !c.IsInGameCurrency && !normalize.IsGameToken(c.Currency) {
				symbols = append(symbols, c.Currency)
			}
		}
	}
	prices := pricefeed.NewClient(cfg.PriceAPIBase, logger).FetchPrices(ctx, symbols, fiat)
	if len(prices.Prices) > 0 {
		return prices
	}
	cached := model.PriceData{Fiat: fiat}
	if err := st.Get(ctx, store.KeyPriceData, &cached); err != nil || cached.Fiat != fiat {
		logger.Warn("no prices available, fiat values omitted")
		return model.PriceData{Fiat: fiat}
	}
	return cached
}
