// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

// TestMaturityPromotesAfterTipAdvance is scenario 5 of §8.
func TestMaturityPromotesAfterTipAdvance(t *testing.T) {
	require := require.New(t)

	cfg := testConfig()
	cfg.StakeUtxoConfirmations = 2
	pm := newTestManager(cfg)

	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 100) // depth 1 at tip 100

	p := seqProof(t, ids.ID{0x1}, 1, o)
	ok, st := pm.RegisterProof(p, view, ModeDefault)
	require.True(ok)
	require.Equal(Immature, st.Result)
	require.True(pm.IsImmature(p.ID()))

	view.tip = 101 // depth now 2
	pm.UpdatedBlockTip(view)

	require.True(pm.IsBoundToPeer(p.ID()))
	require.False(pm.IsImmature(p.ID()))
	require.True(pm.Verify())
}

func TestMaturityDemotesBoundProofOnReorg(t *testing.T) {
	require := require.New(t)

	cfg := testConfig()
	cfg.StakeUtxoConfirmations = 1
	pm := newTestManager(cfg)

	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 100) // depth 1

	p := seqProof(t, ids.ID{0x1}, 1, o)
	ok, st := pm.RegisterProof(p, view, ModeDefault)
	require.True(ok)
	require.Equal(Valid, st.Result)
	require.True(pm.AddNode(NodeID(1), p.ID()))

	// Simulate a reorg: the coin's confirming height moves forward of
	// tip, dropping its depth below the maturity threshold.
	reorgView := newFakeUTXOView(100)
	reorgView.addCoin(o, 1_000_000, 101) // height > tip => depth 0

	pm.UpdatedBlockTip(reorgView)

	require.False(pm.IsBoundToPeer(p.ID()))
	require.True(pm.IsImmature(p.ID()))
	require.Equal(0, pm.GetNodeCount())
	require.Equal(1, pm.GetPendingNodeCount())
	require.True(pm.Verify())
}

func TestMaturityRemovesExpiredBoundProof(t *testing.T) {
	require := require.New(t)

	pm := newTestManager(testConfig())
	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 1)

	p, err := NewProof(ids.ID{0x1}, 1, 1000, MasterPubKey{0xAA}, []Stake{
		{Outpoint: o, Amount: 1_000_000},
	})
	require.NoError(err)

	ok, st := pm.RegisterProof(p, view, ModeDefault)
	require.True(ok)
	require.Equal(Valid, st.Result)

	view.medtp = 1000 // expirationTime <= medianTimePast
	pm.UpdatedBlockTip(view)

	require.False(pm.Exists(p.ID()))
	require.True(pm.Verify())
}

func TestMaturityRemovesBoundProofWithSpentStake(t *testing.T) {
	require := require.New(t)

	pm := newTestManager(testConfig())
	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 1)

	p := seqProof(t, ids.ID{0x1}, 1, o)
	ok, _ := pm.RegisterProof(p, view, ModeDefault)
	require.True(ok)

	delete(view.coins, o)
	pm.UpdatedBlockTip(view)

	require.False(pm.Exists(p.ID()))
}

func TestMaturityReconsidersConflictingAfterDemotion(t *testing.T) {
	require := require.New(t)

	cfg := testConfig()
	cfg.StakeUtxoConfirmations = 1
	pm := newTestManager(cfg)

	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 100)

	incumbent := seqProof(t, ids.ID{0x20}, 20, o)
	rival := seqProof(t, ids.ID{0x10}, 10, o) // lower sequence: loses the conflict

	ok, _ := pm.RegisterProof(incumbent, view, ModeDefault)
	require.True(ok)
	ok, st := pm.RegisterProof(rival, view, ModeDefault)
	require.True(ok)
	require.Equal(Conflicting, st.Result)

	// Incumbent's stake becomes unspendable; on tip update it is removed
	// and the rival, no longer conflicting with anything Bound, is
	// promoted automatically.
	delete(view.coins, o)
	pm.UpdatedBlockTip(view)

	require.False(pm.Exists(incumbent.ID()))
	require.True(pm.IsBoundToPeer(rival.ID()))
}
