// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/juztamau5/dispatcher/configuration"
)

// maxInstanceDepth bounds the recursion into sub-instances.
const maxInstanceDepth = 8

var ErrUnknownContract = errors.New("no abi configured for contract")

// AbiSource resolves the ABI of an instantiator contract.
type AbiSource interface {
	Abi(contract common.Address) (*abi.ABI, error)
}

// StaticAbis is an AbiSource over a fixed set of parsed ABIs.
type StaticAbis map[common.Address]*abi.ABI

func (s StaticAbis) Abi(contract common.Address) (*abi.ABI, error) {
	parsed, ok := s[contract]
	if !ok {
		return nil, fmt.Errorf("%w %v", ErrUnknownContract, contract)
	}
	return parsed, nil
}

// AbiLoader reads the ABI files named in the configuration, caching the
// parsed result per contract.
type AbiLoader struct {
	config *configuration.Configuration

	mutex sync.Mutex
	cache map[common.Address]*abi.ABI
}

func NewAbiLoader(config *configuration.Configuration) *AbiLoader {
	return &AbiLoader{
		config: config,
		cache:  make(map[common.Address]*abi.ABI),
	}
}

func (l *AbiLoader) Abi(contract common.Address) (*abi.ABI, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if parsed, ok := l.cache[contract]; ok {
		return parsed, nil
	}
	concernAbi, ok := l.config.AbiFor(contract)
	if !ok {
		return nil, fmt.Errorf("%w %v", ErrUnknownContract, contract)
	}
	data, err := os.ReadFile(l.config.ResolvePath(concernAbi.Abi))
	if err != nil {
		return nil, fmt.Errorf("reading abi of %v: %w", contract, err)
	}
	parsed, err := ParseAbi(data)
	if err != nil {
		return nil, fmt.Errorf("parsing abi of %v: %w", contract, err)
	}
	l.cache[contract] = parsed
	return parsed, nil
}

// ParseAbi accepts either a plain JSON ABI or a build artifact holding it
// under the "abi" key.
func ParseAbi(data []byte) (*abi.ABI, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var artifact struct {
			Abi json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(data, &artifact); err != nil {
			return nil, err
		}
		if len(artifact.Abi) == 0 {
			return nil, errors.New("artifact has no abi")
		}
		data = artifact.Abi
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Fetcher builds instance trees from instantiator contracts. Every call of
// one fetch is made against the same block so the tree is consistent.
type Fetcher struct {
	caller bind.ContractCaller
	abis   AbiSource
}

func NewFetcher(caller bind.ContractCaller, abis AbiSource) *Fetcher {
	return &Fetcher{
		caller: caller,
		abis:   abis,
	}
}

func (f *Fetcher) contract(address common.Address) (*bind.BoundContract, *abi.ABI, error) {
	parsed, err := f.abis.Abi(address)
	if err != nil {
		return nil, nil, err
	}
	return bind.NewBoundContract(address, *parsed, f.caller, nil, nil), parsed, nil
}

func call(opts *bind.CallOpts, contract *bind.BoundContract, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := contract.Call(opts, &out, method, params...); err != nil {
		return nil, fmt.Errorf("calling %v: %w", method, err)
	}
	return out, nil
}

func callBool(opts *bind.CallOpts, contract *bind.BoundContract, method string, params ...interface{}) (bool, error) {
	out, err := call(opts, contract, method, params...)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%v returned %v values", method, len(out))
	}
	result, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%v returned %T", method, out[0])
	}
	return result, nil
}

// ActiveInstances lists the indices of the concern's contract that are
// active and concern the user.
func (f *Fetcher) ActiveInstances(ctx context.Context, concern configuration.Concern, blockNumber *big.Int) ([]*big.Int, error) {
	contract, _, err := f.contract(concern.ContractAddress)
	if err != nil {
		return nil, err
	}
	opts := &bind.CallOpts{Context: ctx, BlockNumber: blockNumber}
	out, err := call(opts, contract, "getNonce")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getNonce returned %v values", len(out))
	}
	nonce, ok := out[0].(*big.Int)
	if !ok || !nonce.IsUint64() {
		return nil, fmt.Errorf("invalid nonce %v", out[0])
	}
	var indices []*big.Int
	for i := uint64(0); i < nonce.Uint64(); i++ {
		index := new(big.Int).SetUint64(i)
		active, err := callBool(opts, contract, "isActive", index)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		concerned, err := callBool(opts, contract, "isConcerned", index, concern.UserAddress)
		if err != nil {
			return nil, err
		}
		if concerned {
			indices = append(indices, index)
		}
	}
	return indices, nil
}

// Instance fetches the instance tree rooted at index.
func (f *Fetcher) Instance(ctx context.Context, concern configuration.Concern, index *big.Int, blockNumber *big.Int) (*Instance, error) {
	opts := &bind.CallOpts{Context: ctx, BlockNumber: blockNumber}
	return f.fetch(opts, concern, index, 0)
}

func (f *Fetcher) fetch(opts *bind.CallOpts, concern configuration.Concern, index *big.Int, depth int) (*Instance, error) {
	if depth > maxInstanceDepth {
		return nil, fmt.Errorf("instance %v of %v nested too deeply", index, concern.ContractAddress)
	}
	contract, parsed, err := f.contract(concern.ContractAddress)
	if err != nil {
		return nil, err
	}
	method, ok := parsed.Methods["getState"]
	if !ok {
		return nil, fmt.Errorf("abi of %v has no getState", concern.ContractAddress)
	}
	out, err := call(opts, contract, "getState", index, concern.UserAddress)
	if err != nil {
		return nil, err
	}
	data, err := EncodeOutputs(method.Outputs, out)
	if err != nil {
		return nil, fmt.Errorf("encoding state of instance %v: %w", index, err)
	}
	out, err = call(opts, contract, "getSubInstances", index, concern.UserAddress)
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("getSubInstances returned %v values", len(out))
	}
	addresses, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getSubInstances returned addresses of type %T", out[0])
	}
	indices, ok := out[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getSubInstances returned indices of type %T", out[1])
	}
	if len(addresses) != len(indices) {
		return nil, fmt.Errorf("getSubInstances returned %v addresses and %v indices", len(addresses), len(indices))
	}
	instance := &Instance{
		Index:    index,
		Concern:  concern,
		JSONData: data,
	}
	for i, address := range addresses {
		subConcern := configuration.Concern{ContractAddress: address, UserAddress: concern.UserAddress}
		sub, err := f.fetch(opts, subConcern, indices[i], depth+1)
		if err != nil {
			return nil, fmt.Errorf("sub instance %v of %v: %w", i, index, err)
		}
		instance.SubInstances = append(instance.SubInstances, sub)
	}
	return instance, nil
}
