package reconciler

import (
	"context"
	"time"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

var ErrNoSnapshot = errors.New("no league snapshot yet")

// State is the reconciler-owned working set every ingestor writes into. The
// store holds the durable copy of each slice.
type State struct {
	PoolPower    model.PoolPowerState
	UserPower    float64
	Allocation   model.MiningAllocation
	ActiveMarker string
	Balances     model.UserBalances
	Configs      []model.CurrencyConfig
	LeagueID     string
}

// SnapshotSink receives every snapshot the service writes.
type SnapshotSink interface {
	Put(ctx context.Context, snap *model.LeagueSnapshot) error
}

type Service struct {
	store   store.Store
	logger  *zap.Logger
	history SnapshotSink
	clock   func() time.Time

	mtx             deadlock.Mutex
	state           State
	pendingSettings []model.GlobalSetting

	// serializes snapshot writers: reconcile runs and the balance patch
	runMtx deadlock.Mutex
	queue  *coalescer
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	s := &Service{
		store:  st,
		logger: logger.Named("reconciler"),
		clock:  time.Now,
		state: State{
			PoolPower: model.PoolPowerState{},
			Balances:  model.UserBalances{},
			Configs:   model.DefaultCurrencyConfigs(),
		},
	}
	s.queue = newCoalescer(s.runQueued)
	return s
}

func (s *Service) SetHistory(h SnapshotSink) {
	s.history = h
}

// Load restores every persisted slice. Missing keys keep their defaults.
func (s *Service) Load(ctx context.Context) error {
	var st State
	st.PoolPower = model.PoolPowerState{}
	st.Balances = model.UserBalances{}
	loads := []struct {
		key string
		out any
	}{
		{store.KeyPoolPower, &st.PoolPower},
		{store.KeyUserPower, &st.UserPower},
		{store.KeyMiningAllocation, &st.Allocation},
		{store.KeyActiveCurrency, &st.ActiveMarker},
		{store.KeyUserBalances, &st.Balances},
		{store.KeyCurrenciesConfig, &st.Configs},
	}
	for _, l := range loads {
		if err := store.GetOr(ctx, s.store, l.key, l.out); err != nil {
			return errors.Wrapf(err, "failed loading %s", l.key)
		}
	}
	if len(st.Configs) == 0 {
		st.Configs = model.DefaultCurrencyConfigs()
	}
	var prev model.LeagueSnapshot
	if err := store.GetOr(ctx, s.store, store.KeyLeagueData, &prev); err != nil {
		return errors.Wrap(err, "failed loading snapshot")
	}
	st.LeagueID = prev.LeagueID

	s.mtx.Lock()
	s.state = st
	s.mtx.Unlock()
	return nil
}

// State returns a copy of the working set.
func (s *Service) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.copyStateLocked()
}

func (s *Service) copyStateLocked() State {
	st := s.state
	st.PoolPower = make(model.PoolPowerState, len(s.state.PoolPower))
	for k, v := range s.state.PoolPower {
		st.PoolPower[k] = v
	}
	st.Balances = make(model.UserBalances, len(s.state.Balances))
	for k, v := range s.state.Balances {
		st.Balances[k] = v
	}
	st.Allocation = append(model.MiningAllocation(nil), s.state.Allocation...)
	st.Configs = append([]model.CurrencyConfig(nil), s.state.Configs...)
	return st
}

// Snapshot reads the persisted snapshot.
func (s *Service) Snapshot(ctx context.Context) (*model.LeagueSnapshot, error) {
	var snap model.LeagueSnapshot
	if err := s.store.Get(ctx, store.KeyLeagueData, &snap); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return &snap, nil
}

// Start runs queued reconciles until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.queue.start(ctx)
}

// Trigger schedules a reconcile. Triggers that arrive while one is pending
// coalesce into a single run.
func (s *Service) Trigger() {
	s.queue.trigger()
}

func (s *Service) runQueued(ctx context.Context) {
	if _, err := s.ReconcileNow(ctx); err != nil && !errors.Is(err, ErrWouldRegress) {
		s.logger.Error("reconcile failed", zap.Error(err))
	}
}

// ReconcileNow runs one reconcile synchronously and returns the snapshot that
// is persisted afterwards. On ErrWouldRegress the previous snapshot is
// returned with the error.
func (s *Service) ReconcileNow(ctx context.Context) (snap *model.LeagueSnapshot, err error) {
	s.runMtx.Lock()
	defer s.runMtx.Unlock()
	defer func() {
		if r := recover(); r != nil {
			RecordReconcile(outcomeFailed)
			snap, err = nil, errors.Errorf("reconcile panicked: %v", r)
		}
	}()

	s.mtx.Lock()
	st := s.copyStateLocked()
	settings := s.pendingSettings
	s.pendingSettings = nil
	s.mtx.Unlock()

	prev, err := s.Snapshot(ctx)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		RecordReconcile(outcomeFailed)
		return nil, errors.Wrap(err, "failed reading previous snapshot")
	}

	next, err := Reconcile(Inputs{
		PoolPower:    st.PoolPower,
		UserPower:    st.UserPower,
		Allocation:   st.Allocation,
		ActiveMarker: st.ActiveMarker,
		Balances:     st.Balances,
		Configs:      st.Configs,
		LeagueID:     st.LeagueID,
		Previous:     prev,
		Settings:     settings,
		Now:          s.clock(),
	})
	if errors.Is(err, ErrWouldRegress) {
		RecordReconcile(outcomeAborted)
		s.logger.Info("no currency has league power, keeping previous snapshot",
			zap.Int("previous_rows", len(prev.Currencies)))
		return prev, err
	}
	if err != nil {
		RecordReconcile(outcomeFailed)
		return nil, err
	}

	if err := s.store.Set(ctx, store.KeyLeagueData, next); err != nil {
		RecordReconcile(outcomeFailed)
		return nil, errors.Wrap(err, "failed persisting snapshot")
	}
	RecordReconcile(outcomeWritten)
	RecordSnapshotRows(len(next.Currencies))
	s.logger.Debug("snapshot written", zap.Int("rows", len(next.Currencies)),
		zap.String("mining", next.CurrentlyMiningCurrency))

	if s.history != nil {
		if err := s.history.Put(ctx, next); err != nil {
			s.logger.Warn("failed recording snapshot history", zap.Error(err))
		}
	}
	return next, nil
}

// patchBalances updates only the balances of the persisted snapshot.
func (s *Service) patchBalances(ctx context.Context, balances model.UserBalances) error {
	s.runMtx.Lock()
	defer s.runMtx.Unlock()
	snap, err := s.Snapshot(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return err
	}
	snap.UserBalances = balances
	return errors.Wrap(s.store.Set(ctx, store.KeyLeagueData, snap), "failed patching snapshot balances")
}
