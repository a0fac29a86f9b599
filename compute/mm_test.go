// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/archive"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/hasher"
	"github.com/juztamau5/dispatcher/util/testhelpers"
)

func TestMMProviderSubmitsProofs(t *testing.T) {
	g := newGame()
	ctx := g.mmContext(MMWaitingProofs)
	divergence := uint64(5)
	view := newFakeArchive(0)

	reaction, err := NewMM().React(g.mmInstance(t, g.challenger, ctx), view, u256(divergence))
	require.NoError(t, err)
	requireReaction(t, dispatcher.NewRequest(archive.StepRequest{Key: ctx.InitialHash, Time: divergence}), reaction)

	machine := hasher.NewMachine(ctx.InitialHash)
	require.NoError(t, machine.RunTo(divergence))
	accesses := machine.Step()
	require.Len(t, accesses, 2)
	view.steps[sampleKey{ctx.InitialHash, divergence}] = accesses
	read, write := accesses[0], accesses[1]

	instance := g.mmInstance(t, g.challenger, ctx)
	reaction, err = NewMM().React(instance, view, u256(divergence))
	require.NoError(t, err)
	requireReaction(t, expectCall(instance, "proveRead", read.Address, [8]byte(read.Value), read.Proof), reaction)

	ctx.NumberSubmitted = u256(1)
	instance = g.mmInstance(t, g.challenger, ctx)
	reaction, err = NewMM().React(instance, view, u256(divergence))
	require.NoError(t, err)
	requireReaction(t, expectCall(instance, "proveWrite", write.Address, [8]byte(write.Value), [8]byte(write.NewValue), write.Proof), reaction)

	ctx.NumberSubmitted = u256(2)
	instance = g.mmInstance(t, g.challenger, ctx)
	reaction, err = NewMM().React(instance, view, u256(divergence))
	require.NoError(t, err)
	requireReaction(t, expectCall(instance, "finishProofPhase"), reaction)
}

func TestMMIdleCases(t *testing.T) {
	g := newGame()
	cases := []struct {
		name    string
		user    common.Address
		current MMState
	}{
		{"client waiting proofs", g.claimer, MMWaitingProofs},
		{"client waiting replay", g.claimer, MMWaitingReplay},
		{"provider waiting replay", g.challenger, MMWaitingReplay},
		{"provider finished", g.challenger, MMFinishedReplay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reaction, err := NewMM().React(g.mmInstance(t, tc.user, g.mmContext(tc.current)), newFakeArchive(0), u256(1))
			require.NoError(t, err)
			requireReaction(t, dispatcher.Idle{}, reaction)
		})
	}
}

func TestMMErrors(t *testing.T) {
	g := newGame()

	_, err := NewMM().React(g.mmInstance(t, testhelpers.RandomAddress(), g.mmContext(MMWaitingProofs)), newFakeArchive(0), u256(1))
	require.ErrorIs(t, err, dispatcher.ErrInvalidContractState)
	require.ErrorContains(t, err, "user is neither provider nor client")

	_, err = NewMM().React(g.mmInstance(t, g.challenger, g.mmContext("Replaying")), newFakeArchive(0), u256(1))
	var unknown *dispatcher.UnknownStateError
	require.ErrorAs(t, err, &unknown)

	_, err = NewMM().React(g.mmInstance(t, g.challenger, g.mmContext(MMWaitingProofs)), newFakeArchive(0), new(uint256.Int).Lsh(u256(1), 70))
	require.ErrorContains(t, err, "does not fit 64 bits")
}

// A challenger's memory phase runs end to end through the real reactors.
func TestVGChallengerProvesThroughMM(t *testing.T) {
	g := newGame()
	vgCtx := g.vgContext(VGWaitMemoryProveValues)
	mmCtx := g.mmContext(MMWaitingProofs)
	sub := g.mmInstance(t, g.challenger, mmCtx)
	instance := g.vgInstance(t, g.challenger, vgCtx, sub)
	view := newFakeArchive(0)

	reaction, err := NewVG().React(instance, view, struct{}{})
	require.NoError(t, err)
	requireReaction(t, dispatcher.NewRequest(archive.StepRequest{Key: mmCtx.InitialHash, Time: vgCtx.DivergenceTime.Uint64()}), reaction)

	machine := hasher.NewMachine(mmCtx.InitialHash)
	require.NoError(t, machine.RunTo(vgCtx.DivergenceTime.Uint64()))
	accesses := machine.Step()
	view.steps[sampleKey{mmCtx.InitialHash, vgCtx.DivergenceTime.Uint64()}] = accesses
	reaction, err = NewVG().React(instance, view, struct{}{})
	require.NoError(t, err)
	requireReaction(t, expectCall(sub, "proveRead", accesses[0].Address, [8]byte(accesses[0].Value), accesses[0].Proof), reaction)
}
