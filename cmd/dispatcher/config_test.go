// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/util/testhelpers"
)

func TestParseDispatcher(t *testing.T) {
	contract := testhelpers.RandomAddress()
	user := testhelpers.RandomAddress()
	config, err := ParseDispatcher([]string{
		"--url", "ws://127.0.0.1:8545",
		"--working-path", t.TempDir(),
		"--main-concern.contract", contract.Hex(),
		"--main-concern.user", user.Hex(),
		"--main-concern.abi", "vg.json",
		"--dispatcher.poll-interval", "2s",
		"--archive.store", "memory",
	})
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, config.Dispatcher.PollInterval)
	require.Equal(t, "memory", config.Archive.Store)
	require.Equal(t, 500*time.Second, config.MaxDelay)

	resolved, err := config.Resolve()
	require.NoError(t, err)
	require.Equal(t, contract, resolved.MainConcern.ContractAddress)
	require.Equal(t, user, resolved.MainConcern.UserAddress)
}

func TestParseDispatcherRejectsIncompleteConfig(t *testing.T) {
	_, err := ParseDispatcher([]string{"--working-path", t.TempDir()})
	require.ErrorIs(t, err, configuration.ErrInvalidConfig)

	_, err = ParseDispatcher([]string{
		"--url", "ws://127.0.0.1:8545",
		"--working-path", t.TempDir(),
		"--main-concern.contract", testhelpers.RandomAddress().Hex(),
	})
	require.ErrorIs(t, err, configuration.ErrInvalidConfig)

	_, err = ParseDispatcher([]string{
		"--url", "ws://127.0.0.1:8545",
		"--working-path", t.TempDir(),
		"--main-concern.contract", testhelpers.RandomAddress().Hex(),
		"--main-concern.user", testhelpers.RandomAddress().Hex(),
		"--main-concern.abi", "vg.json",
		"--archive.store", "ipfs",
	})
	require.ErrorContains(t, err, "unknown archive store")
}
