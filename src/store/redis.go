package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	redisPrefix        = "leaguecalc:"
	redisChangesPrefix = redisPrefix + "changes:"
)

// RedisStore keeps values under prefixed keys and announces every write on a
// per-key pub/sub channel so all processes sharing the redis see changes.
type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
	hub    *changeHub
	logger *zap.Logger
}

func configureRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rd := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})
	if err := rd.Ping(ctx); err.Err() != nil {
		return nil, errors.Wrap(err.Err(), "failed to ping redis")
	}
	return rd, nil
}

func NewRedisStore(ctx context.Context, addr, password string, logger *zap.Logger) (*RedisStore, error) {
	rd, err := configureRedis(ctx, addr, password)
	if err != nil {
		return nil, err
	}
	ps := rd.PSubscribe(ctx, redisChangesPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		rd.Close()
		return nil, errors.Wrap(err, "failed subscribing to redis changes")
	}
	rs := &RedisStore{
		client: rd,
		pubsub: ps,
		hub:    newChangeHub(),
		logger: logger.With(zap.String("component", "redis_store")),
	}
	go rs.listen()
	return rs, nil
}

func (rs *RedisStore) listen() {
	for msg := range rs.pubsub.Channel() {
		key := strings.TrimPrefix(msg.Channel, redisChangesPrefix)
		rs.hub.publish(key, []byte(msg.Payload))
	}
	rs.logger.Debug("redis change listener stopped")
}

func (rs *RedisStore) Get(ctx context.Context, key string, out any) error {
	raw, err := rs.client.Get(ctx, redisPrefix+key).Bytes()
	if err == redis.Nil {
		return errors.Wrap(ErrNotFound, key)
	}
	if err != nil {
		return errors.Wrapf(err, "failed reading %s from redis", key)
	}
	return errors.Wrapf(json.Unmarshal(raw, out), "failed decoding %s", key)
}

func (rs *RedisStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed encoding %s", key)
	}
	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, redisPrefix+key, raw, 0)
	pipe.Publish(ctx, redisChangesPrefix+key, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed writing %s to redis", key)
	}
	return nil
}

func (rs *RedisStore) OnChange(key string, fn func([]byte)) func() {
	return rs.hub.subscribe(key, fn)
}

// Ping is used by the readiness probe.
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) Close() error {
	rs.pubsub.Close()
	return rs.client.Close()
}
