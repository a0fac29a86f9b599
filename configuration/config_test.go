// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package configuration

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testUser     = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherUser    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func validConfig() Config {
	cfg := ConfigDefault
	cfg.URL = "http://127.0.0.1:8545"
	cfg.WorkingPath = "/tmp/dispatcher"
	cfg.MainConcern = ConcernConfig{Contract: testContract, User: testUser, Abi: "vg.json"}
	return cfg
}

func TestConcernBytesRoundTrip(t *testing.T) {
	concern := Concern{
		ContractAddress: common.HexToAddress(testContract),
		UserAddress:     common.HexToAddress(testUser),
	}
	key := concern.Bytes()
	require.Len(t, key, ConcernLength)
	require.Equal(t, concern.ContractAddress.Bytes(), key[:common.AddressLength])

	decoded, err := ConcernFromBytes(key)
	require.NoError(t, err)
	require.Equal(t, concern, decoded)

	_, err = ConcernFromBytes(key[1:])
	require.Error(t, err)
}

func TestConcernIsStructurallyComparable(t *testing.T) {
	a := Concern{ContractAddress: common.HexToAddress(testContract), UserAddress: common.HexToAddress(testUser)}
	b := Concern{ContractAddress: common.HexToAddress(testContract), UserAddress: common.HexToAddress(testUser)}
	c := Concern{ContractAddress: common.HexToAddress(testContract), UserAddress: common.HexToAddress(otherUser)}
	seen := map[Concern]int{a: 1}
	require.Equal(t, 1, seen[b])
	require.NotContains(t, seen, c)
}

func TestResolve(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Concerns = []ConcernConfig{{Contract: testContract, User: otherUser, Abi: "partition.json"}}
		resolved, err := cfg.Resolve()
		require.NoError(t, err)
		require.Len(t, resolved.Concerns, 2)
		require.Equal(t, resolved.MainConcern, resolved.Concerns[1])
		require.Equal(t, "vg.json", resolved.Abis[resolved.MainConcern].Abi)
		require.Equal(t, "partition.json", resolved.Abis[resolved.Concerns[0]].Abi)
		require.Equal(t, "/tmp/dispatcher/vg.json", resolved.ResolvePath("vg.json"))
		require.Equal(t, "/abs/vg.json", resolved.ResolvePath("/abs/vg.json"))
	})
	t.Run("missing url", func(t *testing.T) {
		cfg := validConfig()
		cfg.URL = ""
		_, err := cfg.Resolve()
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.ErrorContains(t, err, "url")
	})
	t.Run("missing working path", func(t *testing.T) {
		cfg := validConfig()
		cfg.WorkingPath = ""
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
	t.Run("max delay below warn delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxDelay = time.Second
		cfg.WarnDelay = time.Minute
		require.ErrorContains(t, cfg.Validate(), "max-delay")
	})
	t.Run("missing main concern", func(t *testing.T) {
		cfg := validConfig()
		cfg.MainConcern = ConcernConfig{}
		require.ErrorContains(t, cfg.Validate(), "main concern")
	})
	t.Run("partial concern", func(t *testing.T) {
		cfg := validConfig()
		cfg.MainConcern.Abi = ""
		require.ErrorContains(t, cfg.Validate(), "abi should be specified")
	})
	t.Run("bad address", func(t *testing.T) {
		cfg := validConfig()
		cfg.MainConcern.User = "0x1234"
		require.ErrorContains(t, cfg.Validate(), "failed to parse user address")
	})
	t.Run("empty extra concern", func(t *testing.T) {
		cfg := validConfig()
		cfg.Concerns = []ConcernConfig{{}}
		require.ErrorContains(t, cfg.Validate(), "concern 0 is empty")
	})
}

func TestAbiFor(t *testing.T) {
	cfg := validConfig()
	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	abi, ok := resolved.AbiFor(common.HexToAddress(testContract))
	require.True(t, ok)
	require.Equal(t, "vg.json", abi.Abi)
	_, ok = resolved.AbiFor(common.HexToAddress(otherUser))
	require.False(t, ok)
}
