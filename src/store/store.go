package store

import (
	"context"

	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("key not found")

const (
	KeyLeagueData                 = "league_data"
	KeyPoolPower                  = "pool_power"
	KeyUserPower                  = "user_power"
	KeyMiningAllocation           = "mining_allocation"
	KeyActiveCurrency             = "active_mining_currency"
	KeyUserBalances               = "user_balances"
	KeyCurrenciesConfig           = "currencies_config"
	KeyCurrenciesConfigLastUpdate = "currencies_config_last_update"
	KeyBlockRewardSettings        = "block_reward_settings"
	KeyMinWithdrawSettings        = "min_withdraw_settings"
	KeySettings                   = "settings"
	KeyPriceData                  = "price_data"
)

// Store is a durable json key-value store. Last write wins per key.
type Store interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
	// OnChange registers fn for every write to key; the returned func
	// unregisters it.
	OnChange(key string, fn func(raw []byte)) (cancel func())
	Close() error
}

// Open builds the store named by cfg.Store. Unknown or empty names fall back
// to the in-memory store.
func Open(ctx context.Context, cfg common.CommonConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Store {
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddress, cfg.RedisPassword, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "", "memory":
		return NewMemoryStore(), nil
	}
	return nil, errors.Errorf("unknown store type %q", cfg.Store)
}

// GetOr reads key into out, leaving out untouched when the key is absent.
func GetOr(ctx context.Context, s Store, key string, out any) error {
	if err := s.Get(ctx, key, out); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
