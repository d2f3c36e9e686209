// Package redis wraps the go-redis client used for session state.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrKeyNotFound is returned by Get when the key does not exist or has expired.
var ErrKeyNotFound = errors.New("redis: key not found")

type Service struct {
	client *redis.Client
}

// NewService connects to Redis and returns nil when no URL is configured or
// the server does not answer a ping. Callers treat nil as "use memory".
// url may be a bare host:port or a redis:// / rediss:// URL.
func NewService(url, password string) *Service {
	if url == "" {
		log.Warn().Msg("Redis URL not configured - sessions will be kept in memory")
		return nil
	}

	opts, err := clientOptions(url, password)
	if err != nil {
		log.Error().Err(err).Msg("Invalid Redis URL")
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", opts.Addr).
			Msg("Failed to establish Redis connection")
		_ = client.Close()
		return nil
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")

	return &Service{
		client: client,
	}
}

func clientOptions(url, password string) (*redis.Options, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		if opts.Password == "" {
			opts.Password = password
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:     url,
		Password: password,
		DB:       0,
	}, nil
}

// Set stores a value with an optional expiration
func (s *Service) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := s.client.Set(ctx, key, value, expiration).Err(); err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("expiration", expiration).
			Msg("Redis SET operation failed")
		return err
	}
	return nil
}

// Get retrieves a value, returning ErrKeyNotFound for missing keys.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Redis GET operation failed")
		return "", err
	}
	return val, nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
