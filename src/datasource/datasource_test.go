package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/onemorebsmith/league-calc/src/model"
	"go.uber.org/zap"
)

var logger *zap.Logger

func TestMain(m *testing.M) {
	logger = common.ConfigureZap(zap.DebugLevel)
	os.Exit(m.Run())
}

type collector struct {
	mtx    sync.Mutex
	events []events.Event
}

func (c *collector) sink(ev events.Event) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) snapshot() []events.Event {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]events.Event(nil), c.events...)
}

func (c *collector) waitFor(t *testing.T, n int) []events.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(c.snapshot()))
	return nil
}

func TestBackoff(t *testing.T) {
	cases := map[int]time.Duration{
		-1: time.Second,
		0:  time.Second,
		1:  2 * time.Second,
		3:  8 * time.Second,
		6:  time.Minute,
		40: time.Minute,
	}
	for retry, want := range cases {
		if got := Backoff(retry); got != want {
			t.Fatalf("Backoff(%d) = %s, want %s", retry, got, want)
		}
	}
}

func wsServer(t *testing.T, handler func(conn *websocket.Conn, n int32)) (*httptest.Server, *int32) {
	var conns int32
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, atomic.AddInt32(&conns, 1))
	}))
	return srv, &conns
}

func TestWebSocketSourceDecodesAndReconnects(t *testing.T) {
	srv, conns := wsServer(t, func(conn *websocket.Conn, n int32) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"chat","cmdval":{}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		frame := fmt.Sprintf(`{"cmd":"power","cmdval":{"total":%d}}`, n*100)
		conn.WriteMessage(websocket.TextMessage, []byte(frame))
		// server hangs up, the source must dial again
	})
	defer srv.Close()

	src := NewWebSocketSource(strings.Replace(srv.URL, "http://", "ws://", 1), nil, logger)
	src.backoff = func(int) time.Duration { return 10 * time.Millisecond }
	src.ReadTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	done := make(chan error)
	go func() { done <- src.Run(ctx, c.sink) }()

	got := c.waitFor(t, 2)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run should exit cleanly on cancel: %s", err)
	}
	expected := []events.Event{events.PowerEvent{Total: 100}, events.PowerEvent{Total: 200}}
	if d := cmp.Diff(expected, got[:2]); d != "" {
		t.Fatalf("unexpected events: %s", d)
	}
	if atomic.LoadInt32(conns) < 2 {
		t.Fatalf("expected a reconnect, saw %d connections", atomic.LoadInt32(conns))
	}
}

func TestWebSocketSourceStopsWhileConnected(t *testing.T) {
	release := make(chan struct{})
	srv, _ := wsServer(t, func(conn *websocket.Conn, n int32) {
		<-release
	})
	defer srv.Close()
	defer close(release)

	src := NewWebSocketSource(strings.Replace(srv.URL, "http://", "ws://", 1), nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- src.Run(ctx, func(events.Event) {}) }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("source did not stop after cancel")
	}
}

func leagueAPI(t *testing.T, hits *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(pathUserProfile, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("csrf-token") != "csrf" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"leagues_ids":["league-7"]}}`)
	})
	mux.HandleFunc(pathUserPower, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"current_power":13152}}`)
	})
	mux.HandleFunc(pathLeaguePower, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("league_id") != "league-7" {
			t.Errorf("league id not forwarded: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"success":true,"data":[
			{"currency":"SAT","total_power":881997,"block_payout":17600,"is_in_game_currency":false},
			{"currency":"RLT","total_power":5000,"block_payout":3000000,"is_in_game_currency":true}
		]}`)
	})
	mux.HandleFunc(pathUserSettings, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[
			{"currency":"SAT","percent":0,"is_default_currency":true},
			{"currency":"RLT","percent":100,"is_default_currency":false}
		]}`)
	})
	return httptest.NewServer(mux)
}

func TestLeagueAPIPull(t *testing.T) {
	var hits int32
	srv := leagueAPI(t, &hits)
	defer srv.Close()

	src := NewLeagueAPISource(srv.URL, "tok", "csrf", 0, logger)
	c := &collector{}
	if err := src.Pull(context.Background(), c.sink); err != nil {
		t.Fatalf("pull failed: %s", err)
	}
	expected := []events.Event{
		events.PowerEvent{Total: 13152},
		events.GlobalSettingsEvent{Settings: []model.GlobalSetting{
			{Currency: "SAT", BlockSize: 17600, PoolPowerForCurrency: 881997, LeagueID: "league-7"},
			{Currency: "RLT", BlockSize: 3000000, PoolPowerForCurrency: 5000, LeagueID: "league-7"},
		}},
		events.UserSettingsEvent{
			Allocation: model.MiningAllocation{
				{CurrencyKey: "SAT", Percent: 0, IsDefault: true},
				{CurrencyKey: "RLT", Percent: 100},
			},
			Marker: "RLT",
		},
	}
	if d := cmp.Diff(expected, c.snapshot()); d != "" {
		t.Fatalf("unexpected events: %s", d)
	}
}

func TestLeagueAPIPullFailsWithoutAuth(t *testing.T) {
	var hits int32
	srv := leagueAPI(t, &hits)
	defer srv.Close()

	src := NewLeagueAPISource(srv.URL, "", "", 0, logger)
	c := &collector{}
	if err := src.Pull(context.Background(), c.sink); err == nil {
		t.Fatalf("expected an error without credentials")
	}
	if len(c.snapshot()) != 0 {
		t.Fatalf("a failed pull must not emit anything")
	}
}

func TestLeagueAPIRefresh(t *testing.T) {
	var hits int32
	srv := leagueAPI(t, &hits)
	defer srv.Close()

	src := NewLeagueAPISource(srv.URL, "tok", "csrf", 0, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &collector{}
	go src.Run(ctx, c.sink)

	c.waitFor(t, 3)
	if err := src.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %s", err)
	}
	c.waitFor(t, 6)
	if atomic.LoadInt32(&hits) < 2 {
		t.Fatalf("refresh should trigger a second pull")
	}
}

func TestChannelSource(t *testing.T) {
	ch := make(chan events.Event, 3)
	ch <- events.PowerEvent{Total: 1}
	ch <- nil
	ch <- events.BalanceEvent{Balances: model.UserBalances{"btc": "1"}}
	close(ch)

	c := &collector{}
	RunAll(context.Background(), logger, c.sink, NewChannelSource("replay", ch))
	expected := []events.Event{
		events.PowerEvent{Total: 1},
		events.BalanceEvent{Balances: model.UserBalances{"btc": "1"}},
	}
	if d := cmp.Diff(expected, c.snapshot()); d != "" {
		t.Fatalf("unexpected events: %s", d)
	}
}
