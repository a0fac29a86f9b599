// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package transaction

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/solgen/go/instantiatorgen"
	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/util/testhelpers"
)

// Init code of a contract whose runtime is a single STOP, so that any call
// to it succeeds.
var acceptAllCode = common.FromHex("0x600060005360016000f3")

type managerFixture struct {
	backend  *backends.SimulatedBackend
	auth     *bind.TransactOpts
	contract common.Address
	manager  *Manager
	config   *Config
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)
	balance, _ := new(big.Int).SetString("100000000000000000000000", 10)
	backend := backends.NewSimulatedBackend(core.GenesisAlloc{auth.From: {Balance: balance}}, 30_000_000)
	t.Cleanup(func() { _ = backend.Close() })

	parsed, err := instantiatorgen.VGInstantiatorMetaData.GetAbi()
	require.NoError(t, err)
	contract, _, _, err := bind.DeployContract(auth, *parsed, acceptAllCode, backend)
	require.NoError(t, err)
	backend.Commit()

	config := TestConfig
	manager := NewManager(func() *Config { return &config }, backend, state.StaticAbis{contract: parsed}, auth)
	return &managerFixture{
		backend:  backend,
		auth:     auth,
		contract: contract,
		manager:  manager,
		config:   &config,
	}
}

func (f *managerFixture) concern() configuration.Concern {
	return configuration.Concern{ContractAddress: f.contract, UserAddress: f.auth.From}
}

func (f *managerFixture) nonce(t *testing.T) uint64 {
	t.Helper()
	nonce, err := f.backend.PendingNonceAt(context.Background(), f.auth.From)
	require.NoError(t, err)
	return nonce
}

func TestSendDeduplicatesPendingRequests(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	request := NewRequest(f.concern(), "winByPartitionTimeout", big.NewInt(3))

	tx, err := f.manager.Send(ctx, request)
	require.NoError(t, err)
	require.Equal(t, f.contract, *tx.To())
	require.Equal(t, 1, f.manager.Pending())
	nonce := f.nonce(t)

	again, err := f.manager.Send(ctx, NewRequest(f.concern(), "winByPartitionTimeout", big.NewInt(3)))
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), again.Hash())
	require.Equal(t, nonce, f.nonce(t))

	other, err := f.manager.Send(ctx, NewRequest(f.concern(), "winByPartitionTimeout", big.NewInt(4)))
	require.NoError(t, err)
	require.NotEqual(t, tx.Hash(), other.Hash())
	require.Equal(t, 2, f.manager.Pending())

	f.backend.Commit()
	f.manager.checkPending(ctx)
	require.Equal(t, 0, f.manager.Pending())
	select {
	case <-f.manager.Confirmed():
	default:
		t.Fatal("no confirmation signalled")
	}

	// Once mined, the same request is sent again.
	resent, err := f.manager.Send(ctx, request)
	require.NoError(t, err)
	require.NotEqual(t, tx.Hash(), resent.Hash())
}

func TestSendRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	wrongUser := f.concern()
	wrongUser.UserAddress = testhelpers.RandomAddress()
	_, err := f.manager.Send(ctx, NewRequest(wrongUser, "settleVerificationGame", big.NewInt(0)))
	require.ErrorIs(t, err, ErrWrongSender)

	_, err = f.manager.Send(ctx, NewRequest(f.concern(), "noSuchFunction", big.NewInt(0)))
	require.ErrorContains(t, err, "noSuchFunction")

	unknown := f.concern()
	unknown.ContractAddress = testhelpers.RandomAddress()
	_, err = f.manager.Send(ctx, NewRequest(unknown, "settleVerificationGame", big.NewInt(0)))
	require.ErrorIs(t, err, state.ErrUnknownContract)

	require.Equal(t, 0, f.manager.Pending())
}

func TestPendingTimeoutReleasesRequest(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	f.config.PendingTimeout = time.Millisecond
	request := NewRequest(f.concern(), "startMachineRunChallenge", big.NewInt(1))

	first, err := f.manager.Send(ctx, request)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	f.manager.checkPending(ctx)
	require.Equal(t, 0, f.manager.Pending())

	second, err := f.manager.Send(ctx, request)
	require.NoError(t, err)
	require.Equal(t, first.Nonce()+1, second.Nonce())
}

func TestManagerLoopConfirms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newManagerFixture(t)
	f.manager.Start(ctx)
	defer f.manager.StopAndWait()

	_, err := f.manager.Send(ctx, NewRequest(f.concern(), "settleVerificationGame", big.NewInt(7)))
	require.NoError(t, err)
	f.backend.Commit()
	select {
	case <-f.manager.Confirmed():
	case <-time.After(5 * time.Second):
		t.Fatal("transaction never confirmed")
	}
	require.Equal(t, 0, f.manager.Pending())
}

func TestStrategyString(t *testing.T) {
	require.Equal(t, "simplest", Simplest.String())
	require.Equal(t, "strategy(7)", Strategy(7).String())
}
