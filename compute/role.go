// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/juztamau5/dispatcher/state"
)

// Role is the side the local user plays in an instance.
type Role uint8

const (
	Claimer Role = iota
	Challenger
	Provider
	Client
)

func (r Role) String() string {
	switch r {
	case Claimer:
		return "claimer"
	case Challenger:
		return "challenger"
	case Provider:
		return "provider"
	case Client:
		return "client"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

type party struct {
	role    Role
	address common.Address
}

// roleOf classifies the instance's user against the two parties. Matching
// neither or both is an invalid contract state.
func roleOf(protocol string, instance *state.Instance, currentState string, first, second party) (Role, error) {
	user := instance.Concern.UserAddress
	isFirst := user == first.address
	isSecond := user == second.address
	switch {
	case isFirst && isSecond:
		return 0, contractStateError(protocol, instance, currentState, nil,
			fmt.Sprintf("user is both %v and %v", first.role, second.role))
	case isFirst:
		return first.role, nil
	case isSecond:
		return second.role, nil
	default:
		return 0, contractStateError(protocol, instance, currentState, nil,
			fmt.Sprintf("user is neither %v nor %v", first.role, second.role))
	}
}
