// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import "sort"

// Slot is a half-open interval [Start, Start+Score) on the number line
// owned by PeerID. A zero-score slot is a tombstone: it occupies space in
// the table but can never be selected.
type Slot struct {
	Start  uint64
	Score  uint32
	PeerID PeerID
}

// Stop returns the exclusive upper bound of the slot's interval.
func (s Slot) Stop() uint64 {
	return s.Start + uint64(s.Score)
}

// Contains reports whether v falls inside [Start, Stop).
func (s Slot) Contains(v uint64) bool {
	return s.Start <= v && v < s.Stop()
}

func (s Slot) withScore(score uint32) Slot {
	s.Score = score
	return s
}

func (s Slot) withStart(start uint64) Slot {
	s.Start = start
	return s
}

// SlotTable is a dense, append-only array of slots supporting O(log n)
// weight sampling via binary search, lazy deletion through zero-score
// tombstones, and an explicit O(n) compaction that drops tombstones and
// reassigns peer slot indices (spec §4.1).
type SlotTable struct {
	slots []Slot
	frag  uint64 // sum of tombstoned slot scores still occupying the array
	total uint64 // sum of live slot scores
}

// NewSlotTable returns an empty slot table.
func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

// Append places a new slot [prevStop, prevStop+score) at the tail and
// returns its index.
func (t *SlotTable) Append(score uint32, peerID PeerID) int {
	start := uint64(0)
	if n := len(t.slots); n > 0 {
		start = t.slots[n-1].Stop()
	}
	t.slots = append(t.slots, Slot{Start: start, Score: score, PeerID: peerID})
	t.total += uint64(score)
	return len(t.slots) - 1
}

// Remove tombstones the slot at slotIndex, returning the score reclaimed.
// If slotIndex names the last live slot, the tail shrinks immediately
// rather than leaving a tombstone; otherwise the freed span is counted as
// fragmentation until the next Compact.
func (t *SlotTable) Remove(slotIndex int) uint32 {
	if slotIndex < 0 || slotIndex >= len(t.slots) {
		return 0
	}
	old := t.slots[slotIndex]
	if old.Score == 0 {
		return 0
	}

	t.total -= uint64(old.Score)
	t.slots[slotIndex] = t.slots[slotIndex].withScore(0)

	if slotIndex == len(t.slots)-1 {
		t.slots = t.slots[:slotIndex]
	} else {
		t.frag += uint64(old.Score)
	}
	return old.Score
}

// Select performs a binary search for the slot containing s, returning
// NoPeer if s is out of range, s >= max, or the containing slot is a
// tombstone.
func (t *SlotTable) Select(s, max uint64) (PeerID, bool) {
	if s >= max || len(t.slots) == 0 {
		return NoPeer, false
	}

	i := sort.Search(len(t.slots), func(i int) bool {
		return t.slots[i].Stop() > s
	})
	if i >= len(t.slots) {
		return NoPeer, false
	}
	slot := t.slots[i]
	if slot.Score == 0 || !slot.Contains(s) {
		return NoPeer, false
	}
	return slot.PeerID, true
}

// Compact rebuilds the array dropping tombstones, reassigning Start values
// and invoking onReindex for every peer whose slot index moved. It returns
// the fragmentation reclaimed.
func (t *SlotTable) Compact(onReindex func(peerID PeerID, newSlotIndex int)) uint64 {
	reclaimed := t.frag
	if reclaimed == 0 {
		return 0
	}

	newSlots := make([]Slot, 0, len(t.slots))
	start := uint64(0)
	for _, s := range t.slots {
		if s.Score == 0 {
			continue
		}
		newIndex := len(newSlots)
		newSlots = append(newSlots, s.withStart(start))
		start += uint64(s.Score)
		if onReindex != nil {
			onReindex(s.PeerID, newIndex)
		}
	}
	t.slots = newSlots
	t.frag = 0
	return reclaimed
}

// SlotCount returns the position past the last slot: the sum of live and
// tombstoned spans, including any structural gaps.
func (t *SlotTable) SlotCount() uint64 {
	if len(t.slots) == 0 {
		return 0
	}
	return t.slots[len(t.slots)-1].Stop()
}

// Fragmentation returns the total tombstoned score currently occupying the
// table.
func (t *SlotTable) Fragmentation() uint64 {
	return t.frag
}

// TotalScore returns the sum of live slot scores.
func (t *SlotTable) TotalScore() uint64 {
	return t.total
}

// PeerIDAt returns the peer owning slotIndex, for diagnostics (verify()).
func (t *SlotTable) PeerIDAt(slotIndex int) (PeerID, uint32, bool) {
	if slotIndex < 0 || slotIndex >= len(t.slots) {
		return NoPeer, 0, false
	}
	s := t.slots[slotIndex]
	return s.PeerID, s.Score, true
}
