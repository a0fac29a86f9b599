// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package compute

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/juztamau5/dispatcher/configuration"
	"github.com/juztamau5/dispatcher/dispatcher"
	"github.com/juztamau5/dispatcher/hasher"
	"github.com/juztamau5/dispatcher/state"
	"github.com/juztamau5/dispatcher/transaction"
	"github.com/juztamau5/dispatcher/util/testhelpers"
)

var bigComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func requireReaction(t *testing.T, want, got dispatcher.Reaction) {
	t.Helper()
	if diff := cmp.Diff(want, got, bigComparer); diff != "" {
		t.Fatalf("unexpected reaction (-want +got):\n%s", diff)
	}
}

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func u256s(values ...uint64) []*uint256.Int {
	result := make([]*uint256.Int, len(values))
	for i, v := range values {
		result[i] = u256(v)
	}
	return result
}

type sampleKey struct {
	key  common.Hash
	time uint64
}

// fakeArchive is an in-memory dispatcher.Archive.
type fakeArchive struct {
	now    uint64
	hashes map[sampleKey]common.Hash
	steps  map[sampleKey][]hasher.Access
}

func newFakeArchive(now uint64) *fakeArchive {
	return &fakeArchive{
		now:    now,
		hashes: make(map[sampleKey]common.Hash),
		steps:  make(map[sampleKey][]hasher.Access),
	}
}

func (a *fakeArchive) Now() uint64 {
	return a.now
}

func (a *fakeArchive) Hash(key common.Hash, time uint64) (common.Hash, bool) {
	hash, ok := a.hashes[sampleKey{key, time}]
	return hash, ok
}

func (a *fakeArchive) Step(key common.Hash, time uint64) ([]hasher.Access, bool) {
	accesses, ok := a.steps[sampleKey{key, time}]
	return accesses, ok
}

// run archives the honest hashes of the run with the given key.
func (a *fakeArchive) run(t *testing.T, key common.Hash, times ...uint64) []common.Hash {
	t.Helper()
	hashes := make([]common.Hash, len(times))
	for i, time := range times {
		machine := hasher.NewMachine(key)
		require.NoError(t, machine.RunTo(time))
		hashes[i] = machine.Hash()
		a.hashes[sampleKey{key, time}] = hashes[i]
	}
	return hashes
}

type mockPartition struct {
	mock.Mock
}

func (m *mockPartition) React(instance *state.Instance, view dispatcher.Archive, ctx struct{}) (dispatcher.Reaction, error) {
	args := m.Called(instance, view, ctx)
	reaction, _ := args.Get(0).(dispatcher.Reaction)
	return reaction, args.Error(1)
}

type mockMM struct {
	mock.Mock
}

func (m *mockMM) React(instance *state.Instance, view dispatcher.Archive, divergenceTime *uint256.Int) (dispatcher.Reaction, error) {
	args := m.Called(instance, view, divergenceTime)
	reaction, _ := args.Get(0).(dispatcher.Reaction)
	return reaction, args.Error(1)
}

func newInstance(t *testing.T, concern configuration.Concern, index int64, data string, subs ...*state.Instance) *state.Instance {
	t.Helper()
	return &state.Instance{
		Index:        big.NewInt(index),
		Concern:      concern,
		JSONData:     data,
		SubInstances: subs,
	}
}

func encodeVG(t *testing.T, ctx *VGContext) string {
	t.Helper()
	data, err := state.EncodeTuple(
		state.AddressField{Name: "_challenger", Value: ctx.Challenger},
		state.AddressField{Name: "_claimer", Value: ctx.Claimer},
		state.AddressField{Name: "_machine", Value: ctx.Machine},
		state.Bytes32Field{Name: "_initialHash", Value: ctx.InitialHash},
		state.Bytes32Field{Name: "_claimerFinalHash", Value: ctx.ClaimerFinalHash},
		state.Bytes32Field{Name: "_hashBeforeDivergence", Value: ctx.HashBeforeDivergence},
		state.Bytes32Field{Name: "_hashAfterDivergence", Value: ctx.HashAfterDivergence},
		state.String32Field{Name: "_currentState", Value: string(ctx.CurrentState)},
		state.U256ArrayField{Name: "_uintValues", Len: 6, Value: []*uint256.Int{
			ctx.RoundDuration, ctx.FinalTime, ctx.TimeOfLastMove,
			ctx.MMInstance, ctx.PartitionInstance, ctx.DivergenceTime,
		}},
	)
	require.NoError(t, err)
	return data
}

func encodePartition(t *testing.T, ctx *PartitionContext) string {
	t.Helper()
	data, err := state.EncodeTuple(
		state.AddressField{Name: "_challenger", Value: ctx.Challenger},
		state.AddressField{Name: "_claimer", Value: ctx.Claimer},
		state.Bytes32Field{Name: "_initialHash", Value: ctx.InitialHash},
		state.Bytes32Field{Name: "_claimerFinalHash", Value: ctx.ClaimerFinalHash},
		state.U256SliceField{Name: "_queryArray", Value: ctx.QueryArray},
		state.BoolArrayField{Name: "_submittedArray", Value: ctx.SubmittedArray},
		state.Bytes32ArrayField{Name: "_hashArray", Value: ctx.HashArray},
		state.String32Field{Name: "_currentState", Value: string(ctx.CurrentState)},
		state.U256ArrayField{Name: "_uintValues", Len: 5, Value: []*uint256.Int{
			ctx.FinalTime, ctx.QuerySize, ctx.TimeOfLastMove, ctx.RoundDuration, ctx.DivergenceTime,
		}},
	)
	require.NoError(t, err)
	return data
}

func encodeMM(t *testing.T, ctx *MMContext) string {
	t.Helper()
	data, err := state.EncodeTuple(
		state.AddressField{Name: "_provider", Value: ctx.Provider},
		state.AddressField{Name: "_client", Value: ctx.Client},
		state.Bytes32Field{Name: "_initialHash", Value: ctx.InitialHash},
		state.Bytes32Field{Name: "_newHash", Value: ctx.NewHash},
		state.String32Field{Name: "_currentState", Value: string(ctx.CurrentState)},
		state.U256ArrayField{Name: "_uintValues", Len: 2, Value: []*uint256.Int{ctx.NumberSubmitted, ctx.NumberReplayed}},
	)
	require.NoError(t, err)
	return data
}

// game holds the parties of a dispute and the contracts it lives in.
type game struct {
	claimer    common.Address
	challenger common.Address
	vg         common.Address
	partition  common.Address
	mm         common.Address
}

func newGame() *game {
	return &game{
		claimer:    testhelpers.RandomAddress(),
		challenger: testhelpers.RandomAddress(),
		vg:         testhelpers.RandomAddress(),
		partition:  testhelpers.RandomAddress(),
		mm:         testhelpers.RandomAddress(),
	}
}

func (g *game) concern(contract, user common.Address) configuration.Concern {
	return configuration.Concern{ContractAddress: contract, UserAddress: user}
}

func (g *game) vgContext(current VGState) *VGContext {
	return &VGContext{
		Challenger:           g.challenger,
		Claimer:              g.claimer,
		Machine:              testhelpers.RandomAddress(),
		InitialHash:          testhelpers.RandomHash(),
		ClaimerFinalHash:     testhelpers.RandomHash(),
		HashBeforeDivergence: testhelpers.RandomHash(),
		HashAfterDivergence:  testhelpers.RandomHash(),
		CurrentState:         current,
		RoundDuration:        u256(3600),
		FinalTime:            u256(64),
		TimeOfLastMove:       u256(1000),
		MMInstance:           u256(2),
		PartitionInstance:    u256(1),
		DivergenceTime:       u256(37),
	}
}

func (g *game) partitionContext(current PartitionState) *PartitionContext {
	return &PartitionContext{
		Challenger:       g.challenger,
		Claimer:          g.claimer,
		InitialHash:      testhelpers.RandomHash(),
		ClaimerFinalHash: testhelpers.RandomHash(),
		QueryArray:       u256s(0, 16, 32, 48, 64),
		SubmittedArray:   []bool{false, false, false, false, false},
		HashArray:        make([]common.Hash, 5),
		CurrentState:     current,
		FinalTime:        u256(64),
		QuerySize:        u256(5),
		TimeOfLastMove:   u256(1000),
		RoundDuration:    u256(3600),
		DivergenceTime:   u256(0),
	}
}

func (g *game) mmContext(current MMState) *MMContext {
	return &MMContext{
		Provider:        g.challenger,
		Client:          g.claimer,
		InitialHash:     testhelpers.RandomHash(),
		NewHash:         testhelpers.RandomHash(),
		CurrentState:    current,
		NumberSubmitted: u256(0),
		NumberReplayed:  u256(0),
	}
}

func (g *game) vgInstance(t *testing.T, user common.Address, ctx *VGContext, subs ...*state.Instance) *state.Instance {
	t.Helper()
	return newInstance(t, g.concern(g.vg, user), 7, encodeVG(t, ctx), subs...)
}

func (g *game) partitionInstance(t *testing.T, user common.Address, ctx *PartitionContext) *state.Instance {
	t.Helper()
	return newInstance(t, g.concern(g.partition, user), 1, encodePartition(t, ctx))
}

func (g *game) mmInstance(t *testing.T, user common.Address, ctx *MMContext) *state.Instance {
	t.Helper()
	return newInstance(t, g.concern(g.mm, user), 2, encodeMM(t, ctx))
}

func expectCall(instance *state.Instance, function string, args ...interface{}) dispatcher.Reaction {
	data := append([]interface{}{new(big.Int).Set(instance.Index)}, args...)
	return dispatcher.Transaction{Request: transaction.Request{
		Concern:  instance.Concern,
		Value:    big.NewInt(0),
		Function: function,
		Data:     data,
		Strategy: transaction.Simplest,
	}}
}
