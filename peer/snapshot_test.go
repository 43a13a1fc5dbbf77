// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

// TestSnapshotStability checks §8's snapshot-stability law: mutations
// after acquisition do not change a held snapshot's contents.
func TestSnapshotStability(t *testing.T) {
	require := require.New(t)

	pm := newTestManager(testConfig())
	view := newFakeUTXOView(100)

	oA := testOutpoint(1)
	oB := testOutpoint(2)
	view.addCoin(oA, 1_000_000, 1)
	view.addCoin(oB, 1_000_000, 1)

	a := seqProof(t, ids.ID{0xA}, 1, oA)
	ok, _ := pm.RegisterProof(a, view, ModeDefault)
	require.True(ok)

	snap := pm.GetShareableProofsSnapshot()
	require.Equal(1, snap.Len())
	_, ok = snap.Get(a.ID())
	require.True(ok)

	b := seqProof(t, ids.ID{0xB}, 1, oB)
	ok, _ = pm.RegisterProof(b, view, ModeDefault)
	require.True(ok)
	require.True(pm.RejectProof(a.ID(), RejectDefault))

	// The held snapshot still reflects the state at acquisition time.
	require.Equal(1, snap.Len())
	_, ok = snap.Get(a.ID())
	require.True(ok)
	_, ok = snap.Get(b.ID())
	require.False(ok)

	// A fresh snapshot reflects the mutations.
	snap2 := pm.GetShareableProofsSnapshot()
	require.Equal(1, snap2.Len())
	_, ok = snap2.Get(b.ID())
	require.True(ok)
}

func TestSnapshotIterationIsIDSorted(t *testing.T) {
	require := require.New(t)

	pm := newTestManager(testConfig())
	view := newFakeUTXOView(100)

	for _, id := range []byte{0x30, 0x10, 0x20} {
		o := testOutpoint(id)
		view.addCoin(o, 1_000_000, 1)
		p := seqProof(t, ids.ID{id}, 1, o)
		ok, _ := pm.RegisterProof(p, view, ModeDefault)
		require.True(ok)
	}

	snap := pm.GetShareableProofsSnapshot()
	require.Equal(3, snap.Len())

	var prev *Proof
	snap.ForEach(func(p *Proof) bool {
		if prev != nil {
			require.Negative(compareProofID(prev.ID(), p.ID()))
		}
		prev = p
		return true
	})
}

func TestSnapshotUnchangedStateReturnsSameHandle(t *testing.T) {
	require := require.New(t)

	pm := newTestManager(testConfig())
	view := newFakeUTXOView(100)
	o := testOutpoint(1)
	view.addCoin(o, 1_000_000, 1)

	p := seqProof(t, ids.ID{0x1}, 1, o)
	ok, _ := pm.RegisterProof(p, view, ModeDefault)
	require.True(ok)

	first := pm.GetShareableProofsSnapshot()
	second := pm.GetShareableProofsSnapshot()
	require.Same(first, second)
}
