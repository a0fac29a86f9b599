// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package compute implements the reactors of the verification game and of
// the two sub-protocols it delegates to, partition and memory manager.
package compute

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/transaction"
)

const (
	vgProtocol        = "vg"
	partitionProtocol = "partition"
	mmProtocol        = "mm"
)

func contractStateError(protocol string, instance *state.Instance, currentState string, role *Role, reason string) error {
	err := &dispatcher.ContractStateError{
		Protocol: protocol,
		Index:    instance.Index,
		State:    currentState,
		Reason:   reason,
	}
	if role != nil {
		err.Role = role.String()
	}
	return err
}

func unknownState(protocol string, instance *state.Instance, currentState string) error {
	return &dispatcher.UnknownStateError{
		Protocol: protocol,
		Index:    instance.Index,
		State:    currentState,
	}
}

func decodeError(protocol string, instance *state.Instance, err error) error {
	return &dispatcher.DecodeError{
		Protocol: protocol,
		Data:     instance.JSONData,
		Err:      err,
	}
}

// subInstance returns the first nested instance, which every protocol here
// uses for the sub-game of its current phase.
func subInstance(protocol string, instance *state.Instance, currentState string, role Role, what string) (*state.Instance, error) {
	sub, ok := instance.SubInstance(0)
	if !ok {
		return nil, contractStateError(protocol, instance, currentState, &role, "there is no "+what+" instance")
	}
	return sub, nil
}

// call builds a transaction on the instance's contract whose first
// argument is the instance index.
func call(instance *state.Instance, function string, args ...interface{}) dispatcher.Reaction {
	data := append([]interface{}{new(big.Int).Set(instance.Index)}, args...)
	return dispatcher.NewTransaction(transaction.NewRequest(instance.Concern, function, data...))
}

// timedOut reports whether a round that started at lastMove is over at now.
func timedOut(now uint64, lastMove, roundDuration *uint256.Int) bool {
	deadline, overflow := new(uint256.Int).AddOverflow(lastMove, roundDuration)
	if overflow {
		return false
	}
	return uint256.NewInt(now).Gt(deadline)
}

// toUint64s converts machine times, which must fit the emulator's range.
func toUint64s(protocol string, instance *state.Instance, currentState string, values []*uint256.Int) ([]uint64, error) {
	result := make([]uint64, len(values))
	for i, v := range values {
		if !v.IsUint64() {
			return nil, contractStateError(protocol, instance, currentState, nil, "time "+v.Dec()+" does not fit 64 bits")
		}
		result[i] = v.Uint64()
	}
	return result, nil
}

func toBigs(values []*uint256.Int) []*big.Int {
	result := make([]*big.Int, len(values))
	for i, v := range values {
		result[i] = v.ToBig()
	}
	return result
}
