package query

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store é o L2 opcional compartilhado entre réplicas do console
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	DeleteEntity(ctx context.Context, entity string) error
}

// RedisStore guarda resultados serializados em JSON com TTL
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisStore(r *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{R: r, TTL: ttl, Prefix: "betops:q:"}
}

func (s *RedisStore) key(k string) string { return s.Prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.R.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte) error {
	return s.R.Set(ctx, s.key(key), val, s.TTL).Err()
}

// DeleteEntity remove todas as chaves sob a raiz da entidade ("" = tudo)
func (s *RedisStore) DeleteEntity(ctx context.Context, entity string) error {
	match := s.Prefix + "*"
	if entity != "" {
		match = s.Prefix + entity + "|*"
	}
	iter := s.R.Scan(ctx, 0, match, 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := s.R.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.R.Del(ctx, batch...).Err()
	}
	return nil
}
