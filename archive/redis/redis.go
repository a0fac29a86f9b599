// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/juztamau5/dispatcher/archive/storage"
)

// Storage implements redis based storage for the archive. Keys are
// namespaced by prefix so several dispatchers can share a server.
type Storage struct {
	client     redis.UniversalClient
	prefix     string
	expiration time.Duration
}

func NewStorage(client redis.UniversalClient, prefix string, expiration time.Duration) (*Storage, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	return &Storage{
		client:     client,
		prefix:     prefix,
		expiration: expiration,
	}, nil
}

// NewStorageFromURL connects to the server of a redis:// url.
func NewStorageFromURL(url string, prefix string, expiration time.Duration) (*Storage, error) {
	if url == "" {
		return nil, errors.New("redis url is empty")
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewStorage(redis.NewClient(options), prefix, expiration)
}

func (s *Storage) key(key []byte) string {
	return s.prefix + string(key)
}

func (s *Storage) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Storage) Put(ctx context.Context, key []byte, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, s.expiration).Err()
}

func (s *Storage) Close() error {
	return s.client.Close()
}
