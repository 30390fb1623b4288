package datasource

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WebSocketSource reads `{"cmd","cmdval"}` frames from the game socket and
// reconnects with backoff whenever the connection drops.
type WebSocketSource struct {
	url    string
	header http.Header
	logger *zap.Logger

	ReadTimeout  time.Duration
	PingInterval time.Duration
	backoff      func(int) time.Duration
}

func NewWebSocketSource(url string, header http.Header, logger *zap.Logger) *WebSocketSource {
	if header == nil {
		header = http.Header{}
	}
	return &WebSocketSource{
		url:          url,
		header:       header,
		logger:       logger.Named("ws"),
		ReadTimeout:  90 * time.Second,
		PingInterval: 30 * time.Second,
		backoff:      Backoff,
	}
}

func (w *WebSocketSource) Name() string { return "websocket" }

func (w *WebSocketSource) Run(ctx context.Context, sink Sink) error {
	if w.url == "" {
		return errors.New("websocket source has no url")
	}
	retry := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := w.dial(ctx)
		if err != nil {
			delay := w.backoff(retry)
			retry++
			w.logger.Warn("failed connecting to game socket",
				zap.Error(err), zap.Int("retry", retry), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
				continue
			}
		}
		retry = 0
		w.logger.Info("connected to game socket", zap.String("url", w.url))
		w.read(ctx, conn, sink)
	}
}

func (w *WebSocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		return nil, errors.Wrapf(err, "failed dialing %s", w.url)
	}
	return conn, nil
}

func (w *WebSocketSource) read(ctx context.Context, conn *websocket.Conn, sink Sink) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	})
	go w.keepalive(ctx, conn, done)

	for {
		conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("game socket read failed", zap.Error(err))
			}
			return
		}
		w.handle(msg, sink)
	}
}

// keepalive pings on an interval and unblocks the reader on shutdown.
func (w *WebSocketSource) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	var tick <-chan time.Time
	if w.PingInterval > 0 {
		ticker := time.NewTicker(w.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-tick:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				w.logger.Warn("game socket ping failed", zap.Error(err))
				conn.Close()
				return
			}
		}
	}
}

func (w *WebSocketSource) handle(msg []byte, sink Sink) {
	ev, err := events.Decode(msg)
	if err != nil {
		recordFrame(w.Name(), "dropped")
		w.logger.Debug("dropping socket frame", zap.Error(err))
		return
	}
	recordFrame(w.Name(), "ok")
	sink(ev)
}
