// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package testhelpers

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractHandler answers view calls made to a fake contract.
type ContractHandler func(method string, args []interface{}) ([]interface{}, error)

type fakeContract struct {
	abi     *abi.ABI
	handler ContractHandler
}

// FakeChain is a bind.ContractCaller serving calls from Go handlers, with
// calldata and return data going through the real ABI codec.
type FakeChain struct {
	mutex        sync.Mutex
	contracts    map[common.Address]fakeContract
	blockNumbers []*big.Int
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		contracts: make(map[common.Address]fakeContract),
	}
}

func (c *FakeChain) Deploy(address common.Address, parsed *abi.ABI, handler ContractHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.contracts[address] = fakeContract{abi: parsed, handler: handler}
}

func (c *FakeChain) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.contracts[contract]; ok {
		return []byte{0x60}, nil
	}
	return nil, nil
}

func (c *FakeChain) CallContract(_ context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if call.To == nil {
		return nil, fmt.Errorf("call without destination")
	}
	c.mutex.Lock()
	contract, ok := c.contracts[*call.To]
	c.blockNumbers = append(c.blockNumbers, blockNumber)
	c.mutex.Unlock()
	if !ok {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, fmt.Errorf("calldata too short")
	}
	method, err := contract.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	results, err := contract.handler(method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(results...)
}

// BlockNumbers lists the block number of every call received so far.
func (c *FakeChain) BlockNumbers() []*big.Int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]*big.Int(nil), c.blockNumbers...)
}
