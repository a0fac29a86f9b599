// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package archive keeps the machine samples that sub-protocol reactors
// consult: state hashes of runs and memory accesses of single steps.
// Reactors only read an in-memory view; missing samples are requested and
// fetched by the dispatcher between ticks.
package archive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	flag "github.com/spf13/pflag"

	"github.com/juztamau5/dispatcher/archive/leveldb"
	"github.com/juztamau5/dispatcher/archive/redis"
	"github.com/juztamau5/dispatcher/archive/storage"
	"github.com/juztamau5/dispatcher/hasher"
)

// Request asks for samples that are not in the archive yet.
type Request interface {
	isArchiveRequest()
	String() string
}

// RunRequest asks for the state hashes of the run with the given key.
type RunRequest struct {
	Key   common.Hash
	Times []uint64
}

// StepRequest asks for the memory accesses of the step taken from the
// state with hash Key, reached at Time.
type StepRequest struct {
	Key  common.Hash
	Time uint64
}

func (RunRequest) isArchiveRequest()  {}
func (StepRequest) isArchiveRequest() {}

func (r RunRequest) String() string {
	return fmt.Sprintf("run{key: %v, times: %v}", r.Key, r.Times)
}

func (r StepRequest) String() string {
	return fmt.Sprintf("step{key: %v, time: %v}", r.Key, r.Time)
}

// Source computes samples, normally a hasher.Client.
type Source interface {
	Run(ctx context.Context, key common.Hash, times []uint64) ([]common.Hash, error)
	Step(ctx context.Context, hash common.Hash, time uint64) ([]hasher.Access, error)
}

type Config struct {
	Store           string        `koanf:"store"`
	Directory       string        `koanf:"directory"`
	RedisURL        string        `koanf:"redis-url"`
	RedisPrefix     string        `koanf:"redis-prefix"`
	RedisExpiration time.Duration `koanf:"redis-expiration"`
	CacheSize       int           `koanf:"cache-size"`
}

var DefaultConfig = Config{
	Store:           "leveldb",
	Directory:       "archive",
	RedisURL:        "",
	RedisPrefix:     "archive.",
	RedisExpiration: 7 * 24 * time.Hour,
	CacheSize:       1 << 16,
}

var TestConfig = Config{
	Store:     "memory",
	CacheSize: 1 << 10,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".store", DefaultConfig.Store, "persistent store for machine samples (memory, leveldb or redis)")
	f.String(prefix+".directory", DefaultConfig.Directory, "leveldb directory, relative to the working path")
	f.String(prefix+".redis-url", DefaultConfig.RedisURL, "redis url for the redis store")
	f.String(prefix+".redis-prefix", DefaultConfig.RedisPrefix, "prefix of the redis store keys")
	f.Duration(prefix+".redis-expiration", DefaultConfig.RedisExpiration, "expiration of redis store entries")
	f.Int(prefix+".cache-size", DefaultConfig.CacheSize, "number of samples of each kind kept in memory")
}

func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "leveldb":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("archive redis store needs a redis-url")
		}
	default:
		return fmt.Errorf("unknown archive store %q", c.Store)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("archive cache size must be positive, got %v", c.CacheSize)
	}
	return nil
}

// OpenStore opens the configured persistent store; memory means none.
func OpenStore(config *Config, workingPath string) (storage.Store, error) {
	switch config.Store {
	case "memory":
		return nil, nil
	case "leveldb":
		directory := config.Directory
		if !filepath.IsAbs(directory) {
			directory = filepath.Join(workingPath, directory)
		}
		store, err := leveldb.Open(directory)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := redis.NewStorageFromURL(config.RedisURL, config.RedisPrefix, config.RedisExpiration)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive store %q", config.Store)
	}
}

type sampleKey struct {
	key  common.Hash
	time uint64
}

const (
	hashPrefix byte = 'h'
	stepPrefix byte = 's'
)

func (k sampleKey) bytes(prefix byte) []byte {
	result := make([]byte, 0, 1+common.HashLength+8)
	result = append(result, prefix)
	result = append(result, k.key.Bytes()...)
	return binary.BigEndian.AppendUint64(result, k.time)
}

type Archive struct {
	source Source
	store  storage.Store
	hashes *lru.Cache[sampleKey, common.Hash]
	steps  *lru.Cache[sampleKey, []hasher.Access]
}

// New creates an archive. The store may be nil.
func New(source Source, store storage.Store, cacheSize int) (*Archive, error) {
	hashes, err := lru.New[sampleKey, common.Hash](cacheSize)
	if err != nil {
		return nil, err
	}
	steps, err := lru.New[sampleKey, []hasher.Access](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Archive{
		source: source,
		store:  store,
		hashes: hashes,
		steps:  steps,
	}, nil
}

func (a *Archive) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Snapshot returns the read view reactors get for one tick.
func (a *Archive) Snapshot(now uint64) *View {
	return &View{archive: a, now: now}
}

// Fulfill makes the requested samples available to later views, reading
// them from the store when present and from the source otherwise.
func (a *Archive) Fulfill(ctx context.Context, request Request) error {
	switch r := request.(type) {
	case RunRequest:
		return a.fulfillRun(ctx, r)
	case StepRequest:
		return a.fulfillStep(ctx, r)
	default:
		return fmt.Errorf("unknown archive request %T", request)
	}
}

func (a *Archive) fulfillRun(ctx context.Context, r RunRequest) error {
	var missing []uint64
	for _, t := range r.Times {
		k := sampleKey{key: r.Key, time: t}
		if a.hashes.Contains(k) {
			continue
		}
		if a.store != nil {
			value, err := a.store.Get(ctx, k.bytes(hashPrefix))
			if err == nil && len(value) == common.HashLength {
				a.hashes.Add(k, common.BytesToHash(value))
				continue
			}
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return nil
	}
	hashes, err := a.source.Run(ctx, r.Key, missing)
	if err != nil {
		return fmt.Errorf("fetching %v: %w", r, err)
	}
	if len(hashes) != len(missing) {
		return fmt.Errorf("source returned %v hashes for %v times", len(hashes), len(missing))
	}
	for i, t := range missing {
		k := sampleKey{key: r.Key, time: t}
		if a.store != nil {
			if err := a.store.Put(ctx, k.bytes(hashPrefix), hashes[i].Bytes()); err != nil {
				return err
			}
		}
		a.hashes.Add(k, hashes[i])
	}
	log.Debug("archived run hashes", "key", r.Key, "count", len(missing))
	return nil
}

func (a *Archive) fulfillStep(ctx context.Context, r StepRequest) error {
	k := sampleKey{key: r.Key, time: r.Time}
	if a.steps.Contains(k) {
		return nil
	}
	if a.store != nil {
		value, err := a.store.Get(ctx, k.bytes(stepPrefix))
		if err == nil {
			var accesses []hasher.Access
			if err := json.Unmarshal(value, &accesses); err != nil {
				return fmt.Errorf("decoding archived %v: %w", r, err)
			}
			a.steps.Add(k, accesses)
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	accesses, err := a.source.Step(ctx, r.Key, r.Time)
	if err != nil {
		return fmt.Errorf("fetching %v: %w", r, err)
	}
	if a.store != nil {
		value, err := json.Marshal(accesses)
		if err != nil {
			return err
		}
		if err := a.store.Put(ctx, k.bytes(stepPrefix), value); err != nil {
			return err
		}
	}
	a.steps.Add(k, accesses)
	log.Debug("archived step", "key", r.Key, "time", r.Time, "accesses", len(accesses))
	return nil
}

// View is the non blocking read side of the archive for one tick.
type View struct {
	archive *Archive
	now     uint64
}

// Now is the timestamp of the block the tick is based on.
func (v *View) Now() uint64 {
	return v.now
}

func (v *View) Hash(key common.Hash, time uint64) (common.Hash, bool) {
	return v.archive.hashes.Get(sampleKey{key: key, time: time})
}

func (v *View) Step(key common.Hash, time uint64) ([]hasher.Access, bool) {
	return v.archive.steps.Get(sampleKey{key: key, time: time})
}
