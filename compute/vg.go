// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/state"
)

type VGState string

const (
	VGWaitPartition         VGState = "WaitPartition"
	VGWaitMemoryProveValues VGState = "WaitMemoryProveValues"
	VGFinishedClaimerWon    VGState = "FinishedClaimerWon"
	VGFinishedChallengerWon VGState = "FinishedChallengerWon"
)

func (s VGState) finished() bool {
	return s == VGFinishedClaimerWon || s == VGFinishedChallengerWon
}

func (s VGState) valid() bool {
	return s.finished() || s == VGWaitPartition || s == VGWaitMemoryProveValues
}

// VGContext is the decoded state of a verification game instance.
type VGContext struct {
	Challenger           common.Address
	Claimer              common.Address
	Machine              common.Address
	InitialHash          common.Hash
	ClaimerFinalHash     common.Hash
	HashBeforeDivergence common.Hash
	HashAfterDivergence  common.Hash
	CurrentState         VGState
	RoundDuration        *uint256.Int
	FinalTime            *uint256.Int
	TimeOfLastMove       *uint256.Int
	MMInstance           *uint256.Int
	PartitionInstance    *uint256.Int
	DivergenceTime       *uint256.Int
}

// DecodeVGContext decodes the state of a verification game instance. Only
// the layout is checked; the state value is validated by the reactor.
func DecodeVGContext(instance *state.Instance) (*VGContext, error) {
	var (
		challenger, claimer, machine state.AddressField
		initialHash                  state.Bytes32Field
		claimerFinalHash             state.Bytes32Field
		hashBeforeDivergence         state.Bytes32Field
		hashAfterDivergence          state.Bytes32Field
		currentState                 state.String32Field
	)
	uintValues := state.NewU256ArrayField(6)
	err := state.DecodeTuple(instance.JSONData,
		&challenger, &claimer, &machine,
		&initialHash, &claimerFinalHash, &hashBeforeDivergence, &hashAfterDivergence,
		&currentState, uintValues,
	)
	if err != nil {
		return nil, decodeError(vgProtocol, instance, err)
	}
	return &VGContext{
		Challenger:           challenger.Value,
		Claimer:              claimer.Value,
		Machine:              machine.Value,
		InitialHash:          initialHash.Value,
		ClaimerFinalHash:     claimerFinalHash.Value,
		HashBeforeDivergence: hashBeforeDivergence.Value,
		HashAfterDivergence:  hashAfterDivergence.Value,
		CurrentState:         VGState(currentState.Value),
		RoundDuration:        uintValues.At(0),
		FinalTime:            uintValues.At(1),
		TimeOfLastMove:       uintValues.At(2),
		MMInstance:           uintValues.At(3),
		PartitionInstance:    uintValues.At(4),
		DivergenceTime:       uintValues.At(5),
	}, nil
}

// VG reacts to a verification game. It settles the phases it owns itself
// and hands the partition and memory phases to the sub-game reactors,
// returning their reactions and errors unchanged.
type VG struct {
	Partition dispatcher.DApp[struct{}]
	MM        dispatcher.DApp[*uint256.Int]
}

func NewVG() *VG {
	return &VG{
		Partition: NewPartition(),
		MM:        NewMM(),
	}
}

func (vg *VG) React(instance *state.Instance, view dispatcher.Archive, _ struct{}) (dispatcher.Reaction, error) {
	ctx, err := DecodeVGContext(instance)
	if err != nil {
		return nil, err
	}
	log.Trace("vg context", "index", instance.Index, "state", ctx.CurrentState, "claimer", ctx.Claimer, "challenger", ctx.Challenger, "divergence", ctx.DivergenceTime)

	// The game may have ended between listing active instances and reading
	// this one.
	if ctx.CurrentState.finished() {
		return dispatcher.Idle{}, nil
	}
	if !ctx.CurrentState.valid() {
		return nil, unknownState(vgProtocol, instance, string(ctx.CurrentState))
	}
	role, err := roleOf(vgProtocol, instance, string(ctx.CurrentState),
		party{Claimer, ctx.Claimer}, party{Challenger, ctx.Challenger})
	if err != nil {
		return nil, err
	}
	log.Trace("vg role", "index", instance.Index, "role", role)

	if role == Claimer {
		return vg.reactAsClaimer(instance, view, ctx)
	}
	return vg.reactAsChallenger(instance, view, ctx)
}

func (vg *VG) reactAsClaimer(instance *state.Instance, view dispatcher.Archive, ctx *VGContext) (dispatcher.Reaction, error) {
	role := Claimer
	current := string(ctx.CurrentState)
	switch ctx.CurrentState {
	case VGWaitPartition:
		sub, err := subInstance(vgProtocol, instance, current, role, "partition")
		if err != nil {
			return nil, err
		}
		partition, err := decodePartitionContext(sub)
		if err != nil {
			return nil, err
		}
		switch partition.CurrentState {
		case PartitionChallengerWon, PartitionClaimerWon:
			return call(instance, "winByPartitionTimeout"), nil
		case PartitionDivergenceFound:
			return call(instance, "startMachineRunChallenge"), nil
		default:
			return vg.Partition.React(sub, view, struct{}{})
		}
	case VGWaitMemoryProveValues:
		// The memory phase is played by the challenger.
		return dispatcher.Idle{}, nil
	default:
		return nil, contractStateError(vgProtocol, instance, current, &role, "unknown current state")
	}
}

func (vg *VG) reactAsChallenger(instance *state.Instance, view dispatcher.Archive, ctx *VGContext) (dispatcher.Reaction, error) {
	role := Challenger
	current := string(ctx.CurrentState)
	switch ctx.CurrentState {
	case VGWaitPartition:
		sub, err := subInstance(vgProtocol, instance, current, role, "partition")
		if err != nil {
			return nil, err
		}
		return vg.Partition.React(sub, view, struct{}{})
	case VGWaitMemoryProveValues:
		sub, err := subInstance(vgProtocol, instance, current, role, "memory manager")
		if err != nil {
			return nil, err
		}
		mm, err := decodeMMContext(sub)
		if err != nil {
			return nil, err
		}
		switch mm.CurrentState {
		case MMWaitingProofs:
			return vg.MM.React(sub, view, ctx.DivergenceTime)
		case MMWaitingReplay:
			return call(instance, "settleVerificationGame"), nil
		case MMFinishedReplay:
			log.Warn("strange state for vg and mm", "index", instance.Index, "mm", sub.Index, "state", mm.CurrentState)
			return dispatcher.Idle{}, nil
		default:
			log.Warn("unknown state for vg and mm", "index", instance.Index, "mm", sub.Index, "state", mm.CurrentState)
			return dispatcher.Idle{}, nil
		}
	default:
		return nil, contractStateError(vgProtocol, instance, current, &role, "unknown current state")
	}
}
