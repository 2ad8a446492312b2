package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixbrock/promptstudio/internal/history"
)

const maxUpdateAttempts = 16

// RedisStore shares history between server replicas.
type RedisStore struct {
	rdb *goredis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, key).Bytes()

	if errors.Is(err, goredis.Nil) {
		return nil, history.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Update watches key and writes fn's result in a MULTI/EXEC block. A write
// by another client between the read and EXEC aborts the block, and the
// read-modify-write is retried against the new value.
func (s *RedisStore) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	txf := func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()

		if errors.Is(err, goredis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)

		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("update %s: %w", key, goredis.TxFailedErr)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
