// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSlotTableSelectTwoPeers is scenario 1 of §8: two peers with disjoint
// intervals, exercised at every boundary.
func TestSlotTableSelectTwoPeers(t *testing.T) {
	require := require.New(t)

	// The scenario places A at [100,200) and B at [300,400) with gaps on
	// either side; build that layout directly rather than relying on
	// Append's tail placement, which would leave no gaps.
	table := NewSlotTable()
	table.slots = []Slot{
		{Start: 0, Score: 0, PeerID: NoPeer},
		{Start: 100, Score: 100, PeerID: PeerID(1)},
		{Start: 300, Score: 100, PeerID: PeerID(2)},
	}
	table.total = 200

	max := uint64(500)
	for _, s := range []uint64{100, 142, 199} {
		got, ok := table.Select(s, max)
		require.True(ok)
		require.Equal(PeerID(1), got)
	}
	for _, s := range []uint64{0, 99, 200, 299, 400, 499} {
		_, ok := table.Select(s, max)
		require.False(ok)
	}
	for _, s := range []uint64{300, 342, 399} {
		got, ok := table.Select(s, max)
		require.True(ok)
		require.Equal(PeerID(2), got)
	}
}

func TestSlotTableAppendAndRemoveTail(t *testing.T) {
	require := require.New(t)

	table := NewSlotTable()
	i0 := table.Append(10, PeerID(0))
	i1 := table.Append(20, PeerID(1))
	require.Equal(uint64(30), table.SlotCount())
	require.Equal(uint64(30), table.TotalScore())

	reclaimed := table.Remove(i1)
	require.Equal(uint32(20), reclaimed)
	require.Equal(uint64(10), table.SlotCount())
	require.Equal(uint64(0), table.Fragmentation())
	require.Equal(uint64(10), table.TotalScore())

	table.Remove(i0)
	require.Equal(uint64(0), table.SlotCount())
}

func TestSlotTableRemoveMiddleFragmentsThenCompacts(t *testing.T) {
	require := require.New(t)

	table := NewSlotTable()
	iA := table.Append(10, PeerID(1))
	iB := table.Append(20, PeerID(2))
	table.Append(30, PeerID(3))

	reclaimed := table.Remove(iB)
	require.Equal(uint32(20), reclaimed)
	require.Equal(uint64(20), table.Fragmentation())
	require.Equal(uint64(60), table.SlotCount())
	require.Equal(uint64(40), table.TotalScore())

	// The tombstone is unselectable even though it lies within range.
	_, ok := table.Select(15, table.SlotCount())
	require.False(ok)

	reindexed := map[PeerID]int{}
	compacted := table.Compact(func(peerID PeerID, newIdx int) {
		reindexed[peerID] = newIdx
	})
	require.Equal(uint64(20), compacted)
	require.Equal(uint64(0), table.Fragmentation())
	require.Equal(uint64(40), table.SlotCount())
	require.Equal(0, reindexed[PeerID(1)])
	require.Equal(1, reindexed[PeerID(3)])
	require.NotContains(reindexed, PeerID(2))

	p, score, ok := table.PeerIDAt(iA)
	require.True(ok)
	require.Equal(PeerID(1), p)
	require.Equal(uint32(10), score)
}

func TestSlotTableSelectOutOfRange(t *testing.T) {
	require := require.New(t)

	table := NewSlotTable()
	table.Append(50, PeerID(1))

	_, ok := table.Select(49, 10) // s >= max
	require.False(ok)

	_, ok = table.Select(5, 5)
	require.False(ok)

	_, ok = table.Select(0, 0)
	require.False(ok)
}

func TestSlotTableEmptyCompactIsNoop(t *testing.T) {
	require := require.New(t)
	table := NewSlotTable()
	require.Equal(uint64(0), table.Compact(func(PeerID, int) {
		t.Fatal("onReindex should not be called when nothing is fragmented")
	}))
}
