// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/state"
)

type PartitionState string

const (
	PartitionWaitingQuery    PartitionState = "WaitingQuery"
	PartitionWaitingHashes   PartitionState = "WaitingHashes"
	PartitionChallengerWon   PartitionState = "ChallengerWon"
	PartitionClaimerWon      PartitionState = "ClaimerWon"
	PartitionDivergenceFound PartitionState = "DivergenceFound"
)

func (s PartitionState) finished() bool {
	return s == PartitionChallengerWon || s == PartitionClaimerWon || s == PartitionDivergenceFound
}

func (s PartitionState) valid() bool {
	return s.finished() || s == PartitionWaitingQuery || s == PartitionWaitingHashes
}

// PartitionContext is the decoded state of a partition instance. HashArray
// holds the claimer's replies to the current query, one per query time.
type PartitionContext struct {
	Challenger       common.Address
	Claimer          common.Address
	InitialHash      common.Hash
	ClaimerFinalHash common.Hash
	QueryArray       []*uint256.Int
	SubmittedArray   []bool
	HashArray        []common.Hash
	CurrentState     PartitionState
	FinalTime        *uint256.Int
	QuerySize        *uint256.Int
	TimeOfLastMove   *uint256.Int
	RoundDuration    *uint256.Int
	DivergenceTime   *uint256.Int
}

func decodePartitionContext(instance *state.Instance) (*PartitionContext, error) {
	var (
		challenger, claimer           state.AddressField
		initialHash, claimerFinalHash state.Bytes32Field
		queryArray                    state.U256SliceField
		submittedArray                state.BoolArrayField
		hashArray                     state.Bytes32ArrayField
		currentState                  state.String32Field
	)
	uintValues := state.NewU256ArrayField(5)
	err := state.DecodeTuple(instance.JSONData,
		&challenger, &claimer, &initialHash, &claimerFinalHash,
		&queryArray, &submittedArray, &hashArray, &currentState, uintValues,
	)
	if err != nil {
		return nil, decodeError(partitionProtocol, instance, err)
	}
	return &PartitionContext{
		Challenger:       challenger.Value,
		Claimer:          claimer.Value,
		InitialHash:      initialHash.Value,
		ClaimerFinalHash: claimerFinalHash.Value,
		QueryArray:       queryArray.Value,
		SubmittedArray:   submittedArray.Value,
		HashArray:        hashArray.Value,
		CurrentState:     PartitionState(currentState.Value),
		FinalTime:        uintValues.At(0),
		QuerySize:        uintValues.At(1),
		TimeOfLastMove:   uintValues.At(2),
		RoundDuration:    uintValues.At(3),
		DivergenceTime:   uintValues.At(4),
	}, nil
}

// Partition reacts to the bisection game that locates the first step at
// which the claimer's and the challenger's runs disagree.
type Partition struct{}

func NewPartition() *Partition {
	return &Partition{}
}

func (p *Partition) React(instance *state.Instance, view dispatcher.Archive, _ struct{}) (dispatcher.Reaction, error) {
	ctx, err := decodePartitionContext(instance)
	if err != nil {
		return nil, err
	}
	log.Trace("partition context", "index", instance.Index, "state", ctx.CurrentState, "queries", len(ctx.QueryArray), "lastMove", ctx.TimeOfLastMove)

	if ctx.CurrentState.finished() {
		return dispatcher.Idle{}, nil
	}
	if !ctx.CurrentState.valid() {
		return nil, unknownState(partitionProtocol, instance, string(ctx.CurrentState))
	}
	role, err := roleOf(partitionProtocol, instance, string(ctx.CurrentState),
		party{Claimer, ctx.Claimer}, party{Challenger, ctx.Challenger})
	if err != nil {
		return nil, err
	}
	log.Trace("partition role", "index", instance.Index, "role", role)

	switch role {
	case Claimer:
		return p.reactAsClaimer(instance, view, ctx)
	default:
		return p.reactAsChallenger(instance, view, ctx)
	}
}

func (p *Partition) reactAsClaimer(instance *state.Instance, view dispatcher.Archive, ctx *PartitionContext) (dispatcher.Reaction, error) {
	switch ctx.CurrentState {
	case PartitionWaitingHashes:
		times, err := toUint64s(partitionProtocol, instance, string(ctx.CurrentState), ctx.QueryArray)
		if err != nil {
			return nil, err
		}
		hashes, missing := lookupHashes(view, ctx.InitialHash, times)
		if len(missing) > 0 {
			return dispatcher.NewRequest(archive.RunRequest{Key: ctx.InitialHash, Times: missing}), nil
		}
		return call(instance, "replyQuery", toBigs(ctx.QueryArray), hashes), nil
	case PartitionWaitingQuery:
		if timedOut(view.Now(), ctx.TimeOfLastMove, ctx.RoundDuration) {
			return call(instance, "claimVictoryByTime"), nil
		}
		return dispatcher.Idle{}, nil
	default:
		role := Claimer
		return nil, contractStateError(partitionProtocol, instance, string(ctx.CurrentState), &role, "unexpected state")
	}
}

func (p *Partition) reactAsChallenger(instance *state.Instance, view dispatcher.Archive, ctx *PartitionContext) (dispatcher.Reaction, error) {
	role := Challenger
	current := string(ctx.CurrentState)
	switch ctx.CurrentState {
	case PartitionWaitingQuery:
		if len(ctx.HashArray) != len(ctx.QueryArray) {
			return nil, contractStateError(partitionProtocol, instance, current, &role,
				fmt.Sprintf("%v hashes for %v query times", len(ctx.HashArray), len(ctx.QueryArray)))
		}
		times, err := toUint64s(partitionProtocol, instance, current, ctx.QueryArray)
		if err != nil {
			return nil, err
		}
		ours, missing := lookupHashes(view, ctx.InitialHash, times)
		if len(missing) > 0 {
			return dispatcher.NewRequest(archive.RunRequest{Key: ctx.InitialHash, Times: missing}), nil
		}
		j := 0
		for j < len(times) && ours[j] == ctx.HashArray[j] {
			j++
		}
		switch {
		case j == 0:
			return nil, contractStateError(partitionProtocol, instance, current, &role, "initial hash disagreement")
		case j == len(times):
			return nil, contractStateError(partitionProtocol, instance, current, &role, "challenger agrees with every claimed hash")
		}
		left, right := ctx.QueryArray[j-1], ctx.QueryArray[j]
		if times[j] == times[j-1]+1 {
			return call(instance, "presentDivergence", left.ToBig()), nil
		}
		return call(instance, "makeQuery", big.NewInt(int64(j-1)), left.ToBig(), right.ToBig()), nil
	case PartitionWaitingHashes:
		if timedOut(view.Now(), ctx.TimeOfLastMove, ctx.RoundDuration) {
			return call(instance, "claimVictoryByTime"), nil
		}
		return dispatcher.Idle{}, nil
	default:
		return nil, contractStateError(partitionProtocol, instance, current, &role, "unexpected state")
	}
}

// lookupHashes reads the hashes of a run at the given times, returning the
// times that are not archived yet.
func lookupHashes(view dispatcher.Archive, key common.Hash, times []uint64) ([]common.Hash, []uint64) {
	hashes := make([]common.Hash, len(times))
	var missing []uint64
	for i, t := range times {
		hash, ok := view.Hash(key, t)
		if !ok {
			missing = append(missing, t)
			continue
		}
		hashes[i] = hash
	}
	return hashes, missing
}
