package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var logger *zap.Logger

func TestMain(m *testing.M) {
	logger = common.ConfigureZap(zap.DebugLevel)
	os.Exit(m.Run())
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	var missing model.PoolPowerState
	if err := s.Get(ctx, KeyPoolPower, &missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := GetOr(ctx, s, KeyPoolPower, &missing); err != nil {
		t.Fatalf("GetOr should swallow not found, got %s", err)
	}

	changes := make(chan []byte, 4)
	cancel := s.OnChange(KeyPoolPower, func(raw []byte) { changes <- raw })

	expected := model.PoolPowerState{"SAT": 881997, "TRX_SMALL": 12.5}
	if err := s.Set(ctx, KeyPoolPower, expected); err != nil {
		t.Fatalf("set failed: %s", err)
	}
	var got model.PoolPowerState
	if err := s.Get(ctx, KeyPoolPower, &got); err != nil {
		t.Fatalf("get failed: %s", err)
	}
	if d := cmp.Diff(expected, got); d != "" {
		t.Fatalf("value mismatch: %s", d)
	}

	select {
	case raw := <-changes:
		var notified model.PoolPowerState
		if err := json.Unmarshal(raw, &notified); err != nil {
			t.Fatalf("bad change payload: %s", err)
		}
		if d := cmp.Diff(expected, notified); d != "" {
			t.Fatalf("change payload mismatch: %s", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no change notification")
	}

	// last write wins
	expected = model.PoolPowerState{"SAT": 1}
	if err := s.Set(ctx, KeyPoolPower, expected); err != nil {
		t.Fatalf("set failed: %s", err)
	}
	got = nil
	if err := s.Get(ctx, KeyPoolPower, &got); err != nil {
		t.Fatalf("get failed: %s", err)
	}
	if d := cmp.Diff(expected, got); d != "" {
		t.Fatalf("value mismatch after overwrite: %s", d)
	}
	<-changes

	cancel()
	if err := s.Set(ctx, KeyPoolPower, expected); err != nil {
		t.Fatalf("set failed: %s", err)
	}
	select {
	case <-changes:
		t.Fatalf("cancelled subscriber should not be notified")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed opening sqlite: %s", err)
	}
	defer s.Close()
	exerciseStore(t, s)

	// values survive reopening
	s.Close()
	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed reopening sqlite: %s", err)
	}
	defer s.Close()
	var got model.PoolPowerState
	if err := s.Get(context.Background(), KeyPoolPower, &got); err != nil {
		t.Fatalf("get after reopen failed: %s", err)
	}
	if got["SAT"] != 1 {
		t.Fatalf("unexpected value after reopen: %+v", got)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("LEAGUECALC_REDIS")
	if addr == "" {
		t.Skip("LEAGUECALC_REDIS not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, "", logger)
	if err != nil {
		t.Fatalf("failed connecting to redis: %s", err)
	}
	defer s.Close()
	s.client.Del(ctx, redisPrefix+KeyPoolPower)
	exerciseStore(t, s)
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(context.Background(), common.CommonConfig{}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("empty store type should open memory store, got %T", s)
	}
	if _, err := Open(context.Background(), common.CommonConfig{Store: "etcd"}, logger); err == nil {
		t.Fatalf("unknown store type should fail")
	}
}
