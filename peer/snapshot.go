// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"sort"
	"sync/atomic"
)

// Snapshot is an immutable, sorted view of the Bound pool's proofs,
// handed out by GetShareableProofsSnapshot for a caller to serialize to
// peers without holding the peer manager's lock for the duration (§5).
type Snapshot struct {
	proofs []*Proof
}

// Len returns the number of proofs in the snapshot.
func (s *Snapshot) Len() int { return len(s.proofs) }

// Get looks up a proof by id via binary search.
func (s *Snapshot) Get(id ProofID) (*Proof, bool) {
	i := sort.Search(len(s.proofs), func(i int) bool {
		return compareProofID(s.proofs[i].ID(), id) >= 0
	})
	if i < len(s.proofs) && s.proofs[i].ID() == id {
		return s.proofs[i], true
	}
	return nil, false
}

// ForEach visits every proof in ascending id order until visit returns
// false.
func (s *Snapshot) ForEach(visit func(*Proof) bool) {
	for _, p := range s.proofs {
		if !visit(p) {
			return
		}
	}
}

// snapshotPublisher holds the lazily-rebuilt Snapshot behind
// GetShareableProofsSnapshot. dirty is only written under the owning
// PeerManager's write lock and read under at least its read lock; rebuild
// is set once at construction. A Snapshot loaded from cur is immutable, so
// callers use it without any lock.
type snapshotPublisher struct {
	cur     atomic.Pointer[Snapshot]
	dirty   bool
	rebuild func() *Snapshot
}

// markDirty flags the snapshot as stale. Callers must hold the owning
// PeerManager's write lock.
func (s *snapshotPublisher) markDirty() {
	s.dirty = true
}

// buildSnapshot materializes the current Bound pool into a Snapshot,
// sorted by proof id for Snapshot.Get's binary search. Callers must hold
// the write lock.
func (pm *PeerManager) buildSnapshot() *Snapshot {
	proofs := make([]*Proof, 0, pm.bound.len())
	pm.bound.forEach(false, func(p *Peer) bool {
		proofs = append(proofs, p.Proof)
		return true
	})
	sort.Slice(proofs, func(i, j int) bool {
		return compareProofID(proofs[i].ID(), proofs[j].ID()) < 0
	})
	return &Snapshot{proofs: proofs}
}

// GetShareableProofsSnapshot returns the current Bound pool snapshot,
// rebuilding it first if anything has changed since the last call.
func (pm *PeerManager) GetShareableProofsSnapshot() *Snapshot {
	pm.mu.RLock()
	if !pm.snapshot.dirty {
		s := pm.snapshot.cur.Load()
		pm.mu.RUnlock()
		return s
	}
	pm.mu.RUnlock()

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.snapshot.dirty {
		pm.snapshot.cur.Store(pm.snapshot.rebuild())
		pm.snapshot.dirty = false
	}
	return pm.snapshot.cur.Load()
}
