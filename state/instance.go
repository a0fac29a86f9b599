// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package state holds the observed form of on-chain protocol instances: the
// instance tree, the typed JSON encoding of a contract's state, and the
// fetcher that builds both from the chain.
package state

import (
	"fmt"
	"math/big"

	"github.com/juztamau5/dispatcher/configuration"
)

// Instance is one on-chain protocol instance as seen at a single block.
// The tree is rebuilt on every tick and must not be mutated by readers.
type Instance struct {
	Index   *big.Int
	Concern configuration.Concern
	// JSONData is the encoded contract state, a JSON array of typed fields.
	JSONData     string
	SubInstances []*Instance
}

// SubInstance returns the n-th nested instance, if present.
func (i *Instance) SubInstance(n int) (*Instance, bool) {
	if n < 0 || n >= len(i.SubInstances) {
		return nil, false
	}
	return i.SubInstances[n], true
}

func (i *Instance) String() string {
	return fmt.Sprintf("{index: %v, concern: %v, sub instances: %v}", i.Index, i.Concern, len(i.SubInstances))
}
