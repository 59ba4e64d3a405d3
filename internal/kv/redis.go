package kv

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/leg100/kvproxy/internal"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const (
	DefaultRedisHost = "localhost"
	DefaultRedisPort = 6379
)

var _ Store = (*RedisStore)(nil)

type (
	// RedisConfig configures the connection to redis.
	RedisConfig struct {
		Host string
		Port int
		DB   int
	}

	// RedisStore is a Store backed by redis.
	RedisStore struct {
		logr.Logger

		client *redis.Client
	}
)

// NewRedisConfigFromFlags adds flags to the given flagset, and, after the
// flagset is parsed by the caller, the flags populate the returned config.
func NewRedisConfigFromFlags(flags *pflag.FlagSet) *RedisConfig {
	cfg := RedisConfig{}
	flags.StringVar(&cfg.Host, "redis-host", DefaultRedisHost, "Redis host")
	flags.IntVar(&cfg.Port, "redis-port", DefaultRedisPort, "Redis port")
	flags.IntVar(&cfg.DB, "redis-db", 0, "Redis database index")
	return &cfg
}

// Validate checks the config is complete.
func (cfg RedisConfig) Validate() error {
	if cfg.Host == "" {
		return &internal.InvalidConfigError{Field: "redis host", Reason: "must not be empty"}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &internal.InvalidConfigError{Field: "redis port", Reason: "must be between 1 and 65535"}
	}
	if cfg.DB < 0 {
		return &internal.InvalidConfigError{Field: "redis db", Reason: "must not be negative"}
	}
	return nil
}

// Addr returns the host:port of the redis server.
func (cfg RedisConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// NewRedisStore constructs a redis store. No connection is made until the
// first operation.
func NewRedisStore(logger logr.Logger, cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr(),
		DB:   cfg.DB,
		// failures are reported to the caller straight away
		MaxRetries: -1,
	})
	logger.V(1).Info("configured redis client", "address", cfg.Addr(), "db", cfg.DB)
	return &RedisStore{Logger: logger, client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", internal.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Ping checks redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
