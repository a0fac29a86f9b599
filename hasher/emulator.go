// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package hasher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

const Namespace = "hasher"

var ErrUnknownState = errors.New("unknown state hash")

type EmulatorConfig struct {
	// Fake corrupts every hash from FakeFrom on, to play a dishonest party.
	Fake      bool   `koanf:"fake"`
	FakeFrom  uint64 `koanf:"fake-from"`
	MaxTime   uint64 `koanf:"max-time"`
	IndexSize int    `koanf:"index-size"`
}

var DefaultEmulatorConfig = EmulatorConfig{
	Fake:      false,
	FakeFrom:  0,
	MaxTime:   1 << 24,
	IndexSize: 1 << 16,
}

type snapshotRef struct {
	key  common.Hash
	time uint64
}

// Emulator is the hasher JSON-RPC service. It remembers which run and time
// produced each hash it returned, so steps can be requested by state hash.
type Emulator struct {
	config EmulatorConfig
	index  *lru.Cache[common.Hash, snapshotRef]
}

func NewEmulator(config EmulatorConfig) (*Emulator, error) {
	index, err := lru.New[common.Hash, snapshotRef](config.IndexSize)
	if err != nil {
		return nil, err
	}
	return &Emulator{
		config: config,
		index:  index,
	}, nil
}

// NewServer exposes the emulator as hasher_run and hasher_step.
func NewServer(emulator *Emulator) (*rpc.Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(Namespace, emulator); err != nil {
		return nil, err
	}
	return server, nil
}

func (e *Emulator) hashOf(m *Machine) common.Hash {
	hash := m.Hash()
	if e.config.Fake && m.Time() > 0 && m.Time() >= e.config.FakeFrom {
		hash = crypto.Keccak256Hash(hash.Bytes(), []byte("fake"))
	}
	return hash
}

// Run returns the state hashes of the run identified by key at each of the
// given times, in request order.
func (e *Emulator) Run(ctx context.Context, key common.Hash, times []hexutil.Uint64) ([]common.Hash, error) {
	order := make([]int, len(times))
	for i, t := range times {
		if uint64(t) > e.config.MaxTime {
			return nil, fmt.Errorf("time %v is beyond the maximum %v", uint64(t), e.config.MaxTime)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })
	machine := NewMachine(key)
	hashes := make([]common.Hash, len(times))
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := machine.RunTo(uint64(times[i])); err != nil {
			return nil, err
		}
		hash := e.hashOf(machine)
		e.index.Add(hash, snapshotRef{key: key, time: machine.Time()})
		hashes[i] = hash
	}
	log.Trace("hasher run", "key", key, "times", len(times))
	return hashes, nil
}

// Step returns the memory accesses of the step taken from the state with
// the given hash, which must have been produced at the given time.
func (e *Emulator) Step(ctx context.Context, hash common.Hash, time hexutil.Uint64) ([]Access, error) {
	ref, ok := e.index.Get(hash)
	if !ok {
		if time != 0 {
			return nil, fmt.Errorf("%w %v at time %v", ErrUnknownState, hash, uint64(time))
		}
		ref = snapshotRef{key: hash, time: 0}
	}
	if ref.time != uint64(time) {
		return nil, fmt.Errorf("state %v is at time %v, not %v", hash, ref.time, uint64(time))
	}
	machine := NewMachine(ref.key)
	if err := machine.RunTo(ref.time); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Trace("hasher step", "hash", hash, "time", ref.time)
	return machine.Step(), nil
}
