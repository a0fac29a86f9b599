// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/state"
)

type MMState string

const (
	MMWaitingProofs  MMState = "WaitingProofs"
	MMWaitingReplay  MMState = "WaitingReplay"
	MMFinishedReplay MMState = "FinishedReplay"
)

func (s MMState) valid() bool {
	return s == MMWaitingProofs || s == MMWaitingReplay || s == MMFinishedReplay
}

// MMContext is the decoded state of a memory manager instance.
type MMContext struct {
	Provider        common.Address
	Client          common.Address
	InitialHash     common.Hash
	NewHash         common.Hash
	CurrentState    MMState
	NumberSubmitted *uint256.Int
	NumberReplayed  *uint256.Int
}

func decodeMMContext(instance *state.Instance) (*MMContext, error) {
	var (
		provider, client     state.AddressField
		initialHash, newHash state.Bytes32Field
		currentState         state.String32Field
	)
	uintValues := state.NewU256ArrayField(2)
	err := state.DecodeTuple(instance.JSONData, &provider, &client, &initialHash, &newHash, &currentState, uintValues)
	if err != nil {
		return nil, decodeError(mmProtocol, instance, err)
	}
	return &MMContext{
		Provider:        provider.Value,
		Client:          client.Value,
		InitialHash:     initialHash.Value,
		NewHash:         newHash.Value,
		CurrentState:    MMState(currentState.Value),
		NumberSubmitted: uintValues.At(0),
		NumberReplayed:  uintValues.At(1),
	}, nil
}

// MM reacts to the memory manager game, where the provider submits the
// memory accesses of the divergent step with their merkle proofs. Its
// context is the divergence time computed by the parent game.
type MM struct{}

func NewMM() *MM {
	return &MM{}
}

func (m *MM) React(instance *state.Instance, view dispatcher.Archive, divergenceTime *uint256.Int) (dispatcher.Reaction, error) {
	ctx, err := decodeMMContext(instance)
	if err != nil {
		return nil, err
	}
	log.Trace("mm context", "index", instance.Index, "state", ctx.CurrentState, "submitted", ctx.NumberSubmitted, "divergence", divergenceTime)

	if !ctx.CurrentState.valid() {
		return nil, unknownState(mmProtocol, instance, string(ctx.CurrentState))
	}
	role, err := roleOf(mmProtocol, instance, string(ctx.CurrentState),
		party{Provider, ctx.Provider}, party{Client, ctx.Client})
	if err != nil {
		return nil, err
	}
	if role == Client || ctx.CurrentState != MMWaitingProofs {
		return dispatcher.Idle{}, nil
	}

	if divergenceTime == nil || !divergenceTime.IsUint64() {
		return nil, contractStateError(mmProtocol, instance, string(ctx.CurrentState), &role, "divergence time does not fit 64 bits")
	}
	time := divergenceTime.Uint64()
	accesses, ok := view.Step(ctx.InitialHash, time)
	if !ok {
		return dispatcher.NewRequest(archive.StepRequest{Key: ctx.InitialHash, Time: time}), nil
	}
	if !ctx.NumberSubmitted.IsUint64() || ctx.NumberSubmitted.Uint64() >= uint64(len(accesses)) {
		return call(instance, "finishProofPhase"), nil
	}
	access := accesses[ctx.NumberSubmitted.Uint64()]
	proof := append([]common.Hash(nil), access.Proof...)
	if access.Write {
		return call(instance, "proveWrite", access.Address, [8]byte(access.Value), [8]byte(access.NewValue), proof), nil
	}
	return call(instance, "proveRead", access.Address, [8]byte(access.Value), proof), nil
}
