package daemon

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onemorebsmith/league-calc/src/bridge"
	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/currencyfeed"
	"github.com/onemorebsmith/league-calc/src/datasource"
	"github.com/onemorebsmith/league-calc/src/history"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/pricefeed"
	"github.com/onemorebsmith/league-calc/src/reconciler"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Daemon owns the long running pieces: store, reconciler, data sources,
// config and price refreshers, history and the bridge.
type Daemon struct {
	cfg    DaemonConfig
	logger *zap.Logger

	store   store.Store
	service *reconciler.Service
	history *history.History
	feed    *currencyfeed.Feed
	prices  *pricefeed.Client
	api     *datasource.LeagueAPISource
	bridge  *bridge.Server
	sources []datasource.DataSource
}

func New(ctx context.Context, cfg DaemonConfig, logger *zap.Logger) (*Daemon, error) {
	st, err := store.Open(ctx, cfg.CommonConfig, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening store")
	}
	d := &Daemon{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		service: reconciler.NewService(st, logger),
		prices:  pricefeed.NewClient(cfg.PriceAPIBase, logger),
	}

	if cfg.PostgresConfig != "" {
		d.history = history.Open(cfg.PostgresConfig, logger)
		if err := d.history.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		if _, err := d.history.SeedStore(ctx, st); err != nil {
			logger.Warn("failed seeding store from history", zap.Error(err))
		}
		d.service.SetHistory(d.history)
	}
	if err := d.service.Load(ctx); err != nil {
		st.Close()
		return nil, errors.Wrap(err, "failed loading reconciler state")
	}

	d.feed = currencyfeed.NewFeed(cfg.CurrenciesAPIURL, d.service.HandleEvent, d.service.ConfigsUpdatedAt, logger)

	if cfg.WSURL != "" {
		header := http.Header{}
		if cfg.AuthToken != "" {
			header.Set("Authorization", "Bearer "+cfg.AuthToken)
		}
		d.sources = append(d.sources, datasource.NewWebSocketSource(cfg.WSURL, header, logger))
	}
	if cfg.AuthToken != "" {
		d.api = datasource.NewLeagueAPISource(cfg.LeagueAPIBase, cfg.AuthToken, cfg.CSRFToken, cfg.LeaguePollInterval, logger)
		d.sources = append(d.sources, d.api)
	}
	d.bridge = bridge.NewServer(st, bridge.RefreshFunc(d.refresh), cfg.Timeout(), logger)
	return d, nil
}

// AddSource registers an extra data source before Run.
func (d *Daemon) AddSource(src datasource.DataSource) {
	d.sources = append(d.sources, src)
}

func (d *Daemon) Service() *reconciler.Service { return d.service }
func (d *Daemon) Bridge() *bridge.Server      { return d.bridge }
func (d *Daemon) Store() store.Store          { return d.store }

// refresh answers a bridge refresh: re-run the reconcile and, when the
// league api is configured, pull it immediately.
func (d *Daemon) refresh(ctx context.Context) error {
	d.service.Trigger()
	if d.api != nil {
		return d.api.Refresh(ctx)
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	go d.service.Start(ctx)

	if err := d.feed.Start(ctx, d.cfg.ConfigRefreshCron); err != nil {
		return err
	}
	go startPriceRefresher(ctx, d.prices, d.store, model.FiatCurrency(d.cfg.Fiat), d.cfg.priceInterval(), d.logger)

	if d.history != nil && d.cfg.HistoryKeep > 0 {
		go d.history.StartPruner(ctx, d.cfg.pruneInterval(), d.cfg.HistoryKeep)
	}
	if d.cfg.BridgePort != "" {
		d.logger.Info("hosting bridge on " + d.cfg.BridgePort + "/rpc")
		go serve(ctx, d.cfg.BridgePort, d.bridge.Mux(), d.logger)
	}
	if d.cfg.HealthCheckPort != "" {
		d.logger.Info("enabling health check on port " + d.cfg.HealthCheckPort)
		go serve(ctx, d.cfg.HealthCheckPort, readyzMux(d.store, d.history), d.logger)
	}

	if len(d.sources) == 0 {
		d.logger.Warn("no data sources configured, serving cached data only")
		<-ctx.Done()
		return nil
	}
	datasource.RunAll(ctx, d.logger, d.service.Sink(ctx), d.sources...)
	return nil
}

func (d *Daemon) Close() error {
	return d.store.Close()
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", zap.String("addr", addr), zap.Error(err))
	}
}

func ListenAndServe(cfg DaemonConfig) error {
	logger := common.ConfigureZap(common.ParseLevel(cfg.LogLevel))
	if cfg.PromPort != "" {
		common.StartPromServer(logger, cfg.PromPort)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Run(ctx)
}
