// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/juztamau5/dispatcher/archive/storage"
)

// Storage implements leveldb based storage for the archive.
type Storage struct {
	db ethdb.Database
}

func New(db ethdb.Database) *Storage {
	return &Storage{db: db}
}

// Open creates or opens the leveldb database at path.
func Open(path string) (*Storage, error) {
	db, err := rawdb.NewLevelDBDatabase(path, 16, 16, "archive", false)
	if err != nil {
		return nil, fmt.Errorf("opening archive database at %v: %w", path, err)
	}
	return New(db), nil
}

func (s *Storage) Get(_ context.Context, key []byte) ([]byte, error) {
	value, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Storage) Put(_ context.Context, key []byte, value []byte) error {
	return s.db.Put(key, value)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
