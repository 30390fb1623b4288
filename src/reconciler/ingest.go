package reconciler

import (
	"context"
	"time"

	"github.com/onemorebsmith/league-calc/src/events"
	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// HandleFrame decodes a raw source frame and applies it. Frames that fail
// validation are dropped without touching state.
func (s *Service) HandleFrame(ctx context.Context, raw []byte) error {
	ev, err := events.Decode(raw)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, events.ErrUnknownKind) {
			reason = "unknown_kind"
		}
		RecordEventDropped(reason)
		s.logger.Debug("dropping frame", zap.Error(err))
		return err
	}
	return s.HandleEvent(ctx, ev)
}

// HandleEvent updates the slice of state owned by the event kind, persists it
// and schedules a reconcile. Balance events only patch the current snapshot.
func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	var err error
	switch e := ev.(type) {
	case events.PowerEvent:
		err = s.ingestPower(ctx, e)
	case events.PoolPowerEvent:
		err = s.ingestPoolPower(ctx, e)
	case events.BalanceEvent:
		err = s.ingestBalance(ctx, e)
	case events.GlobalSettingsEvent:
		err = s.ingestGlobalSettings(ctx, e)
	case events.UserSettingsEvent:
		err = s.ingestUserSettings(ctx, e)
	case events.CurrenciesConfigEvent:
		err = s.ingestCurrenciesConfig(ctx, e)
	default:
		RecordEventDropped("unknown_kind")
		return errors.Wrapf(events.ErrUnknownKind, "%T", ev)
	}
	if err != nil {
		s.logger.Error("failed ingesting event", zap.String("kind", string(ev.Kind())), zap.Error(err))
		return err
	}
	RecordEventIngested(string(ev.Kind()))
	return nil
}

// Sink adapts the service to a data source callback.
func (s *Service) Sink(ctx context.Context) func(events.Event) {
	return func(ev events.Event) {
		s.HandleEvent(ctx, ev) // sink error, already logged
	}
}

func (s *Service) persist(ctx context.Context, key string, value any) error {
	return errors.Wrapf(s.store.Set(ctx, key, value), "failed persisting %s", key)
}

func (s *Service) ingestPower(ctx context.Context, e events.PowerEvent) error {
	s.mtx.Lock()
	s.state.UserPower = nonNegative(e.Total)
	total := s.state.UserPower
	s.mtx.Unlock()

	if err := s.persist(ctx, store.KeyUserPower, total); err != nil {
		return err
	}
	s.Trigger()
	return nil
}

func (s *Service) ingestPoolPower(ctx context.Context, e events.PoolPowerEvent) error {
	s.mtx.Lock()
	s.state.PoolPower[e.Currency] = nonNegative(e.Power)
	if e.LeagueID != "" {
		s.state.LeagueID = e.LeagueID
	}
	pool := s.copyStateLocked().PoolPower
	s.mtx.Unlock()

	if err := s.persist(ctx, store.KeyPoolPower, pool); err != nil {
		return err
	}
	s.Trigger()
	return nil
}

func (s *Service) ingestBalance(ctx context.Context, e events.BalanceEvent) error {
	balances := make(model.UserBalances, len(e.Balances))
	for k, v := range e.Balances {
		balances[k] = v
	}
	s.mtx.Lock()
	s.state.Balances = balances
	s.mtx.Unlock()

	if err := s.persist(ctx, store.KeyUserBalances, balances); err != nil {
		return err
	}
	return s.patchBalances(ctx, balances)
}

// ingestGlobalSettings merges the per-currency pool power and hands the full
// payload to the next reconcile as the authoritative payout source.
func (s *Service) ingestGlobalSettings(ctx context.Context, e events.GlobalSettingsEvent) error {
	s.mtx.Lock()
	for _, setting := range e.Settings {
		s.state.PoolPower[setting.Currency] = nonNegative(setting.PoolPowerForCurrency)
		if setting.LeagueID != "" {
			s.state.LeagueID = setting.LeagueID
		}
	}
	s.pendingSettings = append([]model.GlobalSetting(nil), e.Settings...)
	pool := s.copyStateLocked().PoolPower
	s.mtx.Unlock()

	if err := s.persist(ctx, store.KeyPoolPower, pool); err != nil {
		return err
	}
	s.Trigger()
	return nil
}

func (s *Service) ingestUserSettings(ctx context.Context, e events.UserSettingsEvent) error {
	s.mtx.Lock()
	if e.Allocation != nil {
		s.state.Allocation = append(model.MiningAllocation{}, e.Allocation...)
	}
	if e.Marker != "" {
		s.state.ActiveMarker = e.Marker
	}
	st := s.copyStateLocked()
	s.mtx.Unlock()

	if e.Allocation != nil {
		if err := s.persist(ctx, store.KeyMiningAllocation, st.Allocation); err != nil {
			return err
		}
	}
	if e.Marker != "" {
		if err := s.persist(ctx, store.KeyActiveCurrency, st.ActiveMarker); err != nil {
			return err
		}
	}
	s.Trigger()
	return nil
}

func (s *Service) ingestCurrenciesConfig(ctx context.Context, e events.CurrenciesConfigEvent) error {
	configs := model.MineableOnly(e.Configs)
	if len(configs) == 0 {
		s.logger.Warn("config payload had no mineable currencies, keeping cached configs")
		return nil
	}
	s.mtx.Lock()
	s.state.Configs = configs
	s.mtx.Unlock()

	if err := s.persist(ctx, store.KeyCurrenciesConfig, configs); err != nil {
		return err
	}
	if err := s.persist(ctx, store.KeyCurrenciesConfigLastUpdate, s.clock().UnixMilli()); err != nil {
		return err
	}
	s.Trigger()
	return nil
}

// ConfigsUpdatedAt reports when currency configs were last refreshed.
func (s *Service) ConfigsUpdatedAt(ctx context.Context) (time.Time, error) {
	var ms int64
	if err := s.store.Get(ctx, store.KeyCurrenciesConfigLastUpdate, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
