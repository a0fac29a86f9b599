// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package transaction

import (
	"fmt"
	"math/big"

	"github.com/juztamau5/dispatcher/configuration"
)

// Strategy is the submission policy of a request.
type Strategy uint8

const (
	// Simplest submits once and never replaces the transaction.
	Simplest Strategy = iota
)

func (s Strategy) String() string {
	switch s {
	case Simplest:
		return "simplest"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// Request is a contract call proposed by a reactor. Data holds the call
// arguments in ABI order, with uint256 values as *big.Int.
type Request struct {
	Concern  configuration.Concern
	Value    *big.Int
	Function string
	Data     []interface{}
	Strategy Strategy
}

// NewRequest builds a zero value request with the Simplest strategy.
func NewRequest(concern configuration.Concern, function string, data ...interface{}) Request {
	return Request{
		Concern:  concern,
		Value:    big.NewInt(0),
		Function: function,
		Data:     data,
		Strategy: Simplest,
	}
}

func (r Request) String() string {
	return fmt.Sprintf("{contract: %v, function: %v, args: %v, value: %v, strategy: %v}",
		r.Concern.ContractAddress, r.Function, r.Data, r.Value, r.Strategy)
}
