package currencyfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/onemorebsmith/league-calc/src/reconciler"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var logger *zap.Logger

func TestMain(m *testing.M) {
	logger = common.ConfigureZap(zap.DebugLevel)
	os.Exit(m.Run())
}

const configBody = `{"success":true,"data":{"currencies_config":[
	{"code":"btc","name":"BTC","display_name":"BTC","balance_key":"SAT","to_small":100000000,"precision_to_balance":10,"min":0.0009,"is_can_be_mined":true},
	{"code":"usdt","name":"USDT","display_name":"USDT","is_can_be_mined":false}
]},"error":""}`

func configServer(body string, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, body)
	}))
}

func TestFetchUpdatesService(t *testing.T) {
	var hits int32
	srv := configServer(configBody, &hits)
	defer srv.Close()

	svc := reconciler.NewService(store.NewMemoryStore(), logger)
	feed := NewFeed(srv.URL, svc.HandleEvent, svc.ConfigsUpdatedAt, logger)
	if err := feed.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch failed: %s", err)
	}
	configs := svc.State().Configs
	if len(configs) != 1 || configs[0].Code != "btc" || configs[0].Min != 0.0009 {
		t.Fatalf("expected only the mineable btc config, got %+v", configs)
	}
	if _, err := svc.ConfigsUpdatedAt(context.Background()); err != nil {
		t.Fatalf("last update should be recorded: %s", err)
	}
}

func TestFetchFailureKeepsCache(t *testing.T) {
	var hits int32
	srv := configServer(`{"success":false,"error":"maintenance"}`, &hits)
	defer srv.Close()

	svc := reconciler.NewService(store.NewMemoryStore(), logger)
	before := svc.State().Configs
	feed := NewFeed(srv.URL, svc.HandleEvent, svc.ConfigsUpdatedAt, logger)
	if err := feed.Fetch(context.Background()); err == nil {
		t.Fatalf("expected unsuccessful payload to fail")
	}
	if len(svc.State().Configs) != len(before) {
		t.Fatalf("failed fetch should leave configs untouched")
	}
}

func TestCheckAndUpdateSkipsFreshConfig(t *testing.T) {
	var hits int32
	srv := configServer(configBody, &hits)
	defer srv.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var last time.Time
	var lastErr error = errors.New("never updated")
	ingested := 0
	feed := NewFeed(srv.URL,
		func(context.Context, events.Event) error { ingested++; return nil },
		func(context.Context) (time.Time, error) { return last, lastErr },
		logger)
	feed.now = func() time.Time { return now }

	if err := feed.CheckAndUpdate(context.Background()); err != nil || ingested != 1 {
		t.Fatalf("missing timestamp should fetch: %v %d", err, ingested)
	}

	last, lastErr = now.Add(-time.Hour), nil
	if err := feed.CheckAndUpdate(context.Background()); err != nil || ingested != 1 {
		t.Fatalf("fresh config should not fetch: %v %d", err, ingested)
	}

	last = now.Add(-7 * time.Hour)
	if err := feed.CheckAndUpdate(context.Background()); err != nil || ingested != 2 {
		t.Fatalf("stale config should fetch: %v %d", err, ingested)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("unexpected request count %d", hits)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	var hits int32
	srv := configServer(configBody, &hits)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := NewFeed(srv.URL, func(context.Context, events.Event) error { return nil },
		func(context.Context) (time.Time, error) { return time.Time{}, errors.New("none") }, logger)
	if err := feed.Start(ctx, "not a schedule"); err == nil {
		t.Fatalf("expected schedule error")
	}
	if err := feed.Start(ctx, "@every 1h"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}
