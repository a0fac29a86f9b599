// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package hasher

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/util/testhelpers"
)

func honestHashes(key common.Hash, times []uint64) []common.Hash {
	result := make([]common.Hash, len(times))
	for i, t := range times {
		machine := NewMachine(key)
		if err := machine.RunTo(t); err != nil {
			panic(err)
		}
		result[i] = machine.Hash()
	}
	return result
}

func TestMachineIsDeterministic(t *testing.T) {
	key := testhelpers.RandomHash()
	a, b := NewMachine(key), NewMachine(key)
	require.Equal(t, key, a.Hash())
	require.NoError(t, a.RunTo(13))
	require.NoError(t, b.RunTo(13))
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, key, a.Hash())
	require.Error(t, a.RunTo(3))

	other := NewMachine(testhelpers.RandomHash())
	require.NoError(t, other.RunTo(13))
	require.NotEqual(t, a.Hash(), other.Hash())
}

func TestStepAccessesCarryValidProofs(t *testing.T) {
	machine := NewMachine(testhelpers.RandomHash())
	for step := 0; step < 2*MemoryWords; step++ {
		root := machine.MemoryRoot()
		accesses := machine.Step()
		require.Len(t, accesses, 2)
		read, write := accesses[0], accesses[1]
		require.False(t, read.Write)
		require.True(t, write.Write)
		require.True(t, VerifyProof(root, read.Address, read.Value, read.Proof))
		require.True(t, VerifyProof(root, write.Address, write.Value, write.Proof))
		require.False(t, VerifyProof(root, write.Address, write.NewValue, write.Proof))
		current, err := machine.Word(write.Address)
		require.NoError(t, err)
		require.Equal(t, write.NewValue, current)
		require.True(t, VerifyProof(machine.MemoryRoot(), write.Address, write.NewValue, write.Proof))
	}
	_, err := machine.Word(3)
	require.Error(t, err)
}

func newTestClient(t *testing.T, config EmulatorConfig) *Client {
	t.Helper()
	emulator, err := NewEmulator(config)
	require.NoError(t, err)
	server, err := NewServer(emulator)
	require.NoError(t, err)
	t.Cleanup(server.Stop)
	clientConfig := DefaultClientConfig
	client := NewClientFromRPC(func() *ClientConfig { return &clientConfig }, rpc.DialInProc(server))
	t.Cleanup(client.Close)
	return client
}

func TestEmulatorService(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, DefaultEmulatorConfig)
	key := testhelpers.RandomHash()
	times := []uint64{9, 0, 4, 4}

	hashes, err := client.Run(ctx, key, times)
	require.NoError(t, err)
	require.Equal(t, honestHashes(key, times), hashes)
	require.Equal(t, key, hashes[1])

	accesses, err := client.Step(ctx, hashes[2], 4)
	require.NoError(t, err)
	machine := NewMachine(key)
	require.NoError(t, machine.RunTo(4))
	require.Equal(t, machine.Step(), accesses)

	accesses, err = client.Step(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, accesses, 2)

	_, err = client.Step(ctx, hashes[0], 5)
	require.ErrorContains(t, err, "is at time 9")
	_, err = client.Step(ctx, testhelpers.RandomHash(), 3)
	require.ErrorContains(t, err, ErrUnknownState.Error())

	_, err = client.Run(ctx, key, []uint64{DefaultEmulatorConfig.MaxTime + 1})
	require.Error(t, err)
}

func TestFakeEmulatorDivergesFromFakeFrom(t *testing.T) {
	ctx := context.Background()
	config := DefaultEmulatorConfig
	config.Fake = true
	config.FakeFrom = 5
	client := newTestClient(t, config)
	key := testhelpers.RandomHash()
	times := []uint64{0, 1, 4, 5, 8}

	hashes, err := client.Run(ctx, key, times)
	require.NoError(t, err)
	honest := honestHashes(key, times)
	require.Equal(t, honest[:3], hashes[:3])
	require.NotEqual(t, honest[3], hashes[3])
	require.NotEqual(t, honest[4], hashes[4])

	// The corrupted hash is still known to the service.
	_, err = client.Step(ctx, hashes[3], 5)
	require.NoError(t, err)
}
