// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found in archive storage")

// Store persists archive entries so they survive restarts, and can be
// shared between processes when backed by redis.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key []byte, value []byte) error
	Close() error
}
