package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type RequestType string

const (
	GetLeagueData   RequestType = "GET_LEAGUE_DATA"
	FetchLeagueData RequestType = "FETCH_LEAGUE_DATA"
	Ping            RequestType = "PING"
)

const (
	msgTimeout = "Timeout waiting for data"
	msgPong    = "Bridge active"
)

var (
	ErrTimeout     = errors.New(msgTimeout)
	ErrUnknownType = errors.New("unknown request type")
)

var bridgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "leaguecalc_bridge_requests",
	Help: "Bridge requests by type and success",
}, []string{"type", "success"})

type Request struct {
	ID   string      `json:"id"`
	Type RequestType `json:"type"`
}

type Response struct {
	ID      string                `json:"id"`
	Success bool                  `json:"success"`
	Data    *model.LeagueSnapshot `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
}

// Refresher asks upstream sources for fresh data.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Server answers bridge requests from the snapshot in the store.
type Server struct {
	store     store.Store
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
}

func NewServer(st store.Store, refresher Refresher, timeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		store:     st,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger.Named("bridge"),
	}
}

// Handle produces exactly one response per request.
func (s *Server) Handle(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	var resp Response
	switch req.Type {
	case Ping:
		resp = Response{Success: true, Message: msgPong}
	case GetLeagueData:
		resp = s.getLeagueData(ctx)
	case FetchLeagueData:
		resp = s.awaitSnapshot(ctx)
	default:
		resp = Response{Message: errors.Wrapf(ErrUnknownType, "%q", req.Type).Error()}
	}
	resp.ID = req.ID
	bridgeRequests.WithLabelValues(string(req.Type), boolLabel(resp.Success)).Inc()
	return resp
}

func (s *Server) getLeagueData(ctx context.Context) Response {
	snap := &model.LeagueSnapshot{}
	err := s.store.Get(ctx, store.KeyLeagueData, snap)
	if err == nil && !snap.Empty() {
		return Response{Success: true, Data: snap}
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed reading cached snapshot", zap.Error(err))
	}
	return s.awaitSnapshot(ctx)
}

// awaitSnapshot requests a refresh and waits for the next snapshot write.
func (s *Server) awaitSnapshot(ctx context.Context) Response {
	written := make(chan []byte, 1)
	cancel := s.store.OnChange(store.KeyLeagueData, func(raw []byte) {
		select {
		case written <- raw:
		default:
		}
	})
	defer cancel()

	ctx, done := context.WithTimeout(ctx, s.timeout)
	defer done()

	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logger.Warn("refresh request failed", zap.Error(err))
		}
	}

	select {
	case raw := <-written:
		snap := &model.LeagueSnapshot{}
		if err := json.Unmarshal(raw, snap); err != nil {
			return Response{Message: errors.Wrap(err, "failed decoding snapshot").Error()}
		}
		return Response{Success: !snap.Empty(), Data: snap}
	case <-ctx.Done():
		return Response{Message: msgTimeout}
	}
}

// ServeHTTP implements POST /rpc.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Response{Message: errors.Wrap(err, "invalid request").Error()})
		return
	}
	resp := s.Handle(r.Context(), req)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed writing response", zap.String("id", resp.ID), zap.Error(err))
	}
}

// Mux mounts the bridge on /rpc.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/rpc", s)
	return mux
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
