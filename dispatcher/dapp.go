// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package dispatcher

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/juztamau5/dispatcher/hasher"
	"github.com/juztamau5/dispatcher/state"
)

// Archive is the read side of the sample archive handed to reactors. Reads
// never block; a missing sample is answered with a Request reaction.
type Archive interface {
	// Now is the timestamp of the block the instance tree was read at.
	Now() uint64
	Hash(key common.Hash, time uint64) (common.Hash, bool)
	Step(key common.Hash, time uint64) ([]hasher.Access, bool)
}

// DApp is a protocol reactor. C is the auxiliary context the calling
// protocol supplies; protocols needing none use struct{}.
//
// React must be a pure function of its arguments: it performs no I/O and
// must not mutate the instance tree.
type DApp[C any] interface {
	React(instance *state.Instance, archive Archive, ctx C) (Reaction, error)
}

// DAppFunc adapts a function to DApp.
type DAppFunc[C any] func(instance *state.Instance, archive Archive, ctx C) (Reaction, error)

func (f DAppFunc[C]) React(instance *state.Instance, archive Archive, ctx C) (Reaction, error) {
	return f(instance, archive, ctx)
}
