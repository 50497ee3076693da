package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	urlKeyPrefix       = "shorturl:"
	blacklistKeyPrefix = "jwt:blacklist:"

	urlCacheTTL = 24 * time.Hour
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb}
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Redirect cache: short code -> long URL.

func (s *Store) GetCachedURL(ctx context.Context, code string) (string, error) {
	return s.rdb.Get(ctx, urlKeyPrefix+code).Result()
}

func (s *Store) SetCachedURL(ctx context.Context, code, longURL string) error {
	return s.rdb.Set(ctx, urlKeyPrefix+code, longURL, urlCacheTTL).Err()
}

func (s *Store) DeleteCachedURL(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, urlKeyPrefix+code).Err()
}

// Token blacklist: logout invalidates a still-valid JWT until its expiry.

func (s *Store) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
}

func (s *Store) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	_, err := s.rdb.Get(ctx, blacklistKeyPrefix+token).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
