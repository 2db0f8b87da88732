package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/types"
)

// RedisConfig configures the Redis-backed session store.
type RedisConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	SessionTTL   time.Duration `yaml:"session_ttl" json:"session_ttl"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// DefaultRedisConfig returns the default Redis session configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		SessionTTL:   24 * time.Hour,
		DialTimeout:  5 * time.Second,
	}
}

// RedisStore persists session snapshots in Redis with a sliding TTL: every
// save refreshes the expiry, so a session lives as long as it stays active.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger = logger.With(zap.String("component", "session_store"))
	logger.Info("redis session store initialized",
		zap.String("addr", config.Addr),
		zap.Duration("session_ttl", config.SessionTTL),
	)
	return &RedisStore{client: client, config: config, logger: logger}, nil
}

func sessionKey(sessionID string) string {
	return "tripflow:session:" + sessionID
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*types.State, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, notFound(sessionID)
	}
	if err != nil {
		s.logger.Error("session load failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, types.NewError(types.ErrServiceUnavailable, "session store unavailable").WithCause(err)
	}
	return decode(data)
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, st *types.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(st.SessionID), data, s.config.SessionTTL).Err(); err != nil {
		s.logger.Error("session save failed", zap.String("session_id", st.SessionID), zap.Error(err))
		return types.NewError(types.ErrServiceUnavailable, "session store unavailable").WithCause(err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return types.NewError(types.ErrServiceUnavailable, "session store unavailable").WithCause(err)
	}
	return nil
}

// Count implements Store by scanning the session key prefix.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var n int
	iter := s.client.Scan(ctx, 0, sessionKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, types.NewError(types.ErrServiceUnavailable, "session store unavailable").WithCause(err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.logger.Info("closing redis session store")
	return s.client.Close()
}
