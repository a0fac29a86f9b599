// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package configuration

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ConcernLength is the size of a serialized Concern: contract then user.
const ConcernLength = 2 * common.AddressLength

// A Concern is a pair of smart contract and user. It selects which contract
// an instance lives in and from whose point of view it is evaluated.
// Concern is comparable and can be used as a map key.
type Concern struct {
	ContractAddress common.Address
	UserAddress     common.Address
}

// ConcernAbi points to the JSON ABI of a concern's contract.
type ConcernAbi struct {
	Abi string
}

func (c Concern) Bytes() []byte {
	result := make([]byte, ConcernLength)
	copy(result[:common.AddressLength], c.ContractAddress.Bytes())
	copy(result[common.AddressLength:], c.UserAddress.Bytes())
	return result
}

func ConcernFromBytes(key []byte) (Concern, error) {
	if len(key) != ConcernLength {
		return Concern{}, fmt.Errorf("concern key has length %v, expected %v", len(key), ConcernLength)
	}
	return Concern{
		ContractAddress: common.BytesToAddress(key[:common.AddressLength]),
		UserAddress:     common.BytesToAddress(key[common.AddressLength:]),
	}, nil
}

func (c Concern) String() string {
	return fmt.Sprintf("{contract: %v, user: %v}", c.ContractAddress, c.UserAddress)
}
