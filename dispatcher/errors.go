// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package dispatcher

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidContractState marks a violated precondition of protocol logic:
// a party that is neither side, a missing sub-instance or a state outside
// the protocol's set. Re-polling does not fix it by itself.
var ErrInvalidContractState = errors.New("invalid contract state")

// DecodeError reports an encoded state that does not have the layout of
// the protocol it was decoded as.
type DecodeError struct {
	Protocol string
	Data     string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not parse %v instance json data %v: %v", e.Protocol, e.Data, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownStateError reports a current state outside the protocol's
// enumerated set.
type UnknownStateError struct {
	Protocol string
	Index    *big.Int
	State    string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("%v: unknown current state %q (protocol %v, index %v)", ErrInvalidContractState, e.State, e.Protocol, e.Index)
}

func (e *UnknownStateError) Is(target error) bool {
	return target == ErrInvalidContractState
}

// ContractStateError locates an invalid contract state: which instance,
// in which state and from which side of the protocol.
type ContractStateError struct {
	Protocol string
	Index    *big.Int
	State    string
	Role     string
	Reason   string
}

func (e *ContractStateError) Error() string {
	msg := fmt.Sprintf("%v: %v (protocol %v, index %v, state %v", ErrInvalidContractState, e.Reason, e.Protocol, e.Index, e.State)
	if e.Role != "" {
		msg += ", role " + e.Role
	}
	return msg + ")"
}

func (e *ContractStateError) Is(target error) bool {
	return target == ErrInvalidContractState
}
