// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package state

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/solgen/go/instantiatorgen"
	"github.com/juztamau5/dispatcher/util/testhelpers"
)

func parseMetaData(t *testing.T, meta *bind.MetaData) *abi.ABI {
	t.Helper()
	parsed, err := meta.GetAbi()
	require.NoError(t, err)
	return parsed
}

func mustString32(t *testing.T, s string) common.Hash {
	t.Helper()
	h, err := String32(s)
	require.NoError(t, err)
	return h
}

func TestDecodeTuple(t *testing.T) {
	challenger := testhelpers.RandomAddress()
	hash := testhelpers.RandomHash()
	data, err := EncodeTuple(
		AddressField{Name: "_challenger", Value: challenger},
		Bytes32Field{Name: "_initialHash", Value: hash},
		String32Field{Name: "_currentState", Value: "WaitPartition"},
		U256ArrayField{Name: "_uintValues", Len: 2, Value: []*uint256.Int{uint256.NewInt(3), uint256.NewInt(4)}},
		BoolArrayField{Name: "_submitted", Value: []bool{true, false}},
	)
	require.NoError(t, err)

	var address AddressField
	var bytes32 Bytes32Field
	var currentState String32Field
	values := NewU256ArrayField(2)
	var submitted BoolArrayField
	require.NoError(t, DecodeTuple(data, &address, &bytes32, &currentState, values, &submitted))
	require.Equal(t, challenger, address.Value)
	require.Equal(t, "_challenger", address.Name)
	require.Equal(t, hash, bytes32.Value)
	require.Equal(t, "WaitPartition", currentState.Value)
	require.Equal(t, uint64(4), values.At(1).Uint64())
	require.True(t, values.At(7).IsZero())
	require.Equal(t, []bool{true, false}, submitted.Value)
}

func TestDecodeTupleRejectsMalformedState(t *testing.T) {
	data, err := EncodeTuple(AddressField{Name: "a", Value: testhelpers.RandomAddress()})
	require.NoError(t, err)

	t.Run("wrong field count", func(t *testing.T) {
		var a, b AddressField
		require.ErrorContains(t, DecodeTuple(data, &a, &b), "expected 2 fields, got 1")
	})
	t.Run("wrong field type", func(t *testing.T) {
		var h Bytes32Field
		require.ErrorIs(t, DecodeTuple(data, &h), ErrFieldType)
	})
	t.Run("not json", func(t *testing.T) {
		var a AddressField
		require.Error(t, DecodeTuple("[{", &a))
	})
	t.Run("wrong array length", func(t *testing.T) {
		short, err := EncodeTuple(U256ArrayField{Name: "v", Len: 6, Value: []*uint256.Int{uint256.NewInt(1)}})
		require.NoError(t, err)
		require.ErrorContains(t, DecodeTuple(short, NewU256ArrayField(6)), "has 1 elements, expected 6")
		require.ErrorIs(t, DecodeTuple(short, NewU256ArrayField(5)), ErrFieldType)
	})
	t.Run("integer overflow", func(t *testing.T) {
		raw := `[{"name":"v","type":"uint256","value":"0x1` + string(make64Zeros()) + `"}]`
		var v U256Field
		require.ErrorContains(t, DecodeTuple(raw, &v), "256 bits")
	})
}

func make64Zeros() []byte {
	zeros := make([]byte, 64)
	for i := range zeros {
		zeros[i] = '0'
	}
	return zeros
}

func TestString32(t *testing.T) {
	encoded, err := json.Marshal(String32Field{Name: "_currentState", Value: "DivergenceFound"})
	require.NoError(t, err)
	var decoded String32Field
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, "DivergenceFound", decoded.Value)

	_, err = String32("this state name is far too long to fit")
	require.Error(t, err)
}

func TestParseAbi(t *testing.T) {
	plain := []byte(instantiatorgen.MMInstantiatorMetaData.ABI)
	parsed, err := ParseAbi(plain)
	require.NoError(t, err)
	require.Contains(t, parsed.Methods, "proveRead")

	artifact := []byte(`{"contractName":"MMInstantiator","abi":` + instantiatorgen.MMInstantiatorMetaData.ABI + `}`)
	parsed, err = ParseAbi(artifact)
	require.NoError(t, err)
	require.Contains(t, parsed.Methods, "finishProofPhase")

	_, err = ParseAbi([]byte(`{"contractName":"Empty"}`))
	require.Error(t, err)
}

func TestAbiLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vg.json"), []byte(instantiatorgen.VGInstantiatorMetaData.ABI), 0o600))
	contract := testhelpers.RandomAddress()
	cfg := configuration.ConfigDefault
	cfg.URL = "http://localhost:8545"
	cfg.WorkingPath = dir
	cfg.MainConcern = configuration.ConcernConfig{Contract: contract.Hex(), User: testhelpers.RandomAddress().Hex(), Abi: "vg.json"}
	resolved, err := cfg.Resolve()
	require.NoError(t, err)

	loader := NewAbiLoader(resolved)
	parsed, err := loader.Abi(contract)
	require.NoError(t, err)
	require.Contains(t, parsed.Methods, "settleVerificationGame")
	again, err := loader.Abi(contract)
	require.NoError(t, err)
	require.Same(t, parsed, again)

	_, err = loader.Abi(testhelpers.RandomAddress())
	require.ErrorIs(t, err, ErrUnknownContract)
}

type fetcherFixture struct {
	chain      *testhelpers.FakeChain
	abis       StaticAbis
	vg         common.Address
	partition  common.Address
	challenger common.Address
	claimer    common.Address
	machine    common.Address
	initial    common.Hash
}

func newFetcherFixture(t *testing.T) *fetcherFixture {
	f := &fetcherFixture{
		chain:      testhelpers.NewFakeChain(),
		vg:         testhelpers.RandomAddress(),
		partition:  testhelpers.RandomAddress(),
		challenger: testhelpers.RandomAddress(),
		claimer:    testhelpers.RandomAddress(),
		machine:    testhelpers.RandomAddress(),
		initial:    testhelpers.RandomHash(),
	}
	vgAbi := parseMetaData(t, instantiatorgen.VGInstantiatorMetaData)
	partitionAbi := parseMetaData(t, instantiatorgen.PartitionInstantiatorMetaData)
	f.abis = StaticAbis{f.vg: vgAbi, f.partition: partitionAbi}
	waitPartition := mustString32(t, "WaitPartition")
	waitingQuery := mustString32(t, "WaitingQuery")

	f.chain.Deploy(f.vg, vgAbi, func(method string, args []interface{}) ([]interface{}, error) {
		switch method {
		case "getNonce":
			return []interface{}{big.NewInt(3)}, nil
		case "isActive":
			return []interface{}{args[0].(*big.Int).Int64() != 1}, nil
		case "isConcerned":
			index := args[0].(*big.Int).Int64()
			return []interface{}{index == 2 && args[1].(common.Address) == f.claimer}, nil
		case "getState":
			values := [6]*big.Int{big.NewInt(3600), big.NewInt(1000), big.NewInt(12), big.NewInt(0), big.NewInt(7), big.NewInt(0)}
			return []interface{}{f.challenger, f.claimer, f.machine, f.initial, common.Hash{1}, common.Hash{}, common.Hash{}, waitPartition, values}, nil
		case "getSubInstances":
			return []interface{}{[]common.Address{f.partition}, []*big.Int{big.NewInt(7)}}, nil
		}
		return nil, nil
	})
	f.chain.Deploy(f.partition, partitionAbi, func(method string, args []interface{}) ([]interface{}, error) {
		switch method {
		case "getState":
			values := [5]*big.Int{big.NewInt(1000), big.NewInt(3), big.NewInt(12), big.NewInt(3600), big.NewInt(0)}
			queries := []*big.Int{big.NewInt(0), big.NewInt(500), big.NewInt(1000)}
			return []interface{}{f.challenger, f.claimer, f.initial, common.Hash{1}, queries, []bool{true, false, true}, []common.Hash{f.initial, {}, {1}}, waitingQuery, values}, nil
		case "getSubInstances":
			return []interface{}{[]common.Address{}, []*big.Int{}}, nil
		}
		return nil, nil
	})
	return f
}

func TestFetcherActiveInstances(t *testing.T) {
	f := newFetcherFixture(t)
	fetcher := NewFetcher(f.chain, f.abis)
	concern := configuration.Concern{ContractAddress: f.vg, UserAddress: f.claimer}
	indices, err := fetcher.ActiveInstances(context.Background(), concern, nil)
	require.NoError(t, err)
	require.Equal(t, []*big.Int{big.NewInt(2)}, indices)

	stranger := configuration.Concern{ContractAddress: f.vg, UserAddress: testhelpers.RandomAddress()}
	indices, err = fetcher.ActiveInstances(context.Background(), stranger, nil)
	require.NoError(t, err)
	require.Empty(t, indices)
}

func TestFetcherInstanceTree(t *testing.T) {
	f := newFetcherFixture(t)
	fetcher := NewFetcher(f.chain, f.abis)
	concern := configuration.Concern{ContractAddress: f.vg, UserAddress: f.claimer}
	block := big.NewInt(42)
	instance, err := fetcher.Instance(context.Background(), concern, big.NewInt(2), block)
	require.NoError(t, err)
	require.Equal(t, concern, instance.Concern)
	require.Equal(t, int64(2), instance.Index.Int64())

	var challenger, claimer, machine AddressField
	var initial, final, before, after Bytes32Field
	var currentState String32Field
	values := NewU256ArrayField(6)
	require.NoError(t, DecodeTuple(instance.JSONData, &challenger, &claimer, &machine, &initial, &final, &before, &after, &currentState, values))
	require.Equal(t, f.challenger, challenger.Value)
	require.Equal(t, f.claimer, claimer.Value)
	require.Equal(t, f.machine, machine.Value)
	require.Equal(t, f.initial, initial.Value)
	require.Equal(t, "WaitPartition", currentState.Value)
	require.Equal(t, uint64(7), values.At(4).Uint64())

	sub, ok := instance.SubInstance(0)
	require.True(t, ok)
	_, ok = instance.SubInstance(1)
	require.False(t, ok)
	require.Equal(t, configuration.Concern{ContractAddress: f.partition, UserAddress: f.claimer}, sub.Concern)
	require.Equal(t, int64(7), sub.Index.Int64())
	require.Empty(t, sub.SubInstances)

	var queries U256SliceField
	var submitted BoolArrayField
	var hashes Bytes32ArrayField
	var partitionState String32Field
	require.NoError(t, DecodeTuple(sub.JSONData,
		&challenger, &claimer, &initial, &final, &queries, &submitted, &hashes, &partitionState, NewU256ArrayField(5)))
	require.Len(t, queries.Value, 3)
	require.Equal(t, uint64(500), queries.Value[1].Uint64())
	require.Equal(t, []bool{true, false, true}, submitted.Value)
	require.Equal(t, f.initial, hashes.Value[0])
	require.Equal(t, "WaitingQuery", partitionState.Value)

	for _, number := range f.chain.BlockNumbers() {
		require.Equal(t, block, number)
	}
}

func TestFetcherUnknownSubContract(t *testing.T) {
	f := newFetcherFixture(t)
	delete(f.abis, f.partition)
	fetcher := NewFetcher(f.chain, f.abis)
	concern := configuration.Concern{ContractAddress: f.vg, UserAddress: f.claimer}
	_, err := fetcher.Instance(context.Background(), concern, big.NewInt(2), nil)
	require.ErrorIs(t, err, ErrUnknownContract)
}
