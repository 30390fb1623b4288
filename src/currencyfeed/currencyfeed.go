package currencyfeed

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultURL      = "https://rollercoin.com/api/wallet/get-currencies-config"
	DefaultSchedule = "@every 6h"
	RefreshInterval = 6 * time.Hour
)

// IngestFunc applies a decoded config event, normally Service.HandleEvent.
type IngestFunc func(ctx context.Context, ev events.Event) error

// UpdatedAtFunc reports the last successful refresh. Any error counts as stale.
type UpdatedAtFunc func(ctx context.Context) (time.Time, error)

type Feed struct {
	url       string
	http      *http.Client
	ingest    IngestFunc
	updatedAt UpdatedAtFunc
	logger    *zap.Logger
	now       func() time.Time
	cron      *cron.Cron
}

func NewFeed(url string, ingest IngestFunc, updatedAt UpdatedAtFunc, logger *zap.Logger) *Feed {
	if url == "" {
		url = DefaultURL
	}
	return &Feed{
		url:       url,
		http:      &http.Client{Timeout: 30 * time.Second},
		ingest:    ingest,
		updatedAt: updatedAt,
		logger:    logger.Named("currencyfeed"),
		now:       time.Now,
	}
}

// Fetch pulls the config list and hands it to the ingest func. On any
// failure the cached configs are left alone.
func (f *Feed) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed fetching currencies config")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("currencies config returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed reading currencies config")
	}
	payload := gjson.ParseBytes(body)
	if !payload.Get("success").Bool() {
		return errors.Errorf("currencies config unsuccessful: %s", payload.Get("error").String())
	}
	ev, err := events.DecodePayload(events.KindCurrenciesConfig, payload)
	if err != nil {
		return err
	}
	if err := f.ingest(ctx, ev); err != nil {
		return errors.Wrap(err, "failed applying currencies config")
	}
	f.logger.Info("currencies config updated",
		zap.Int("currencies", len(ev.(events.CurrenciesConfigEvent).Configs)))
	return nil
}

// CheckAndUpdate fetches only when the cached configs are older than the
// refresh interval.
func (f *Feed) CheckAndUpdate(ctx context.Context) error {
	last, err := f.updatedAt(ctx)
	if err == nil && f.now().Sub(last) < RefreshInterval {
		f.logger.Info("currencies config is fresh", zap.Duration("age", f.now().Sub(last).Round(time.Minute)))
		return nil
	}
	return f.Fetch(ctx)
}

// Start checks staleness once, then refreshes on the cron schedule until ctx
// is cancelled.
func (f *Feed) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if err := f.CheckAndUpdate(ctx); err != nil {
		f.logger.Warn("initial currencies config fetch failed", zap.Error(err))
	}
	f.cron = cron.New()
	if _, err := f.cron.AddFunc(schedule, func() {
		if err := f.Fetch(ctx); err != nil {
			f.logger.Error("currencies config refresh failed", zap.Error(err))
		}
	}); err != nil {
		return errors.Wrapf(err, "bad config refresh schedule %q", schedule)
	}
	f.cron.Start()
	go func() {
		<-ctx.Done()
		<-f.cron.Stop().Done()
	}()
	return nil
}
