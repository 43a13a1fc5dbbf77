// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import "sort"

// proofIndex is a multi-key index over a single pool's proofs: by proof
// id (primary), by (score, id) ascending (for eviction), and by staked
// outpoint (for conflict detection). Per §4.2/§9 the contract is O(log n)
// lookup on every key and atomic insertion/removal across all of them; a
// small custom index layer over a primary map plus a sorted slice meets
// that contract without a fourth, unused sequence index (ConflictArbiter
// reads sequence directly off the two proofs it's comparing, so no
// separate by-sequence structure is ever queried at runtime).
type proofIndex struct {
	byID       map[ProofID]*Peer
	byOutpoint map[Outpoint]ProofID
	// byScoreAsc holds proof ids sorted ascending by (score, id), so the
	// minimum-score entry (used by the Immature pool's eviction rule and
	// by Conflicting's cap) is index 0.
	byScoreAsc []ProofID
}

func newProofIndex() *proofIndex {
	return &proofIndex{
		byID:       make(map[ProofID]*Peer),
		byOutpoint: make(map[Outpoint]ProofID),
	}
}

func (idx *proofIndex) len() int {
	return len(idx.byID)
}

func (idx *proofIndex) get(id ProofID) (*Peer, bool) {
	p, ok := idx.byID[id]
	return p, ok
}

// conflictsWith returns the id of a pooled proof sharing an outpoint with
// proof, if any. Proofs are constructed with unique outpoints (§3), so at
// most one pooled proof can conflict per outpoint; the first hit across
// proof's own outpoints is returned.
func (idx *proofIndex) conflictsWith(proof *Proof) (ProofID, bool) {
	for _, o := range proof.outpoints() {
		if id, ok := idx.byOutpoint[o]; ok {
			return id, true
		}
	}
	return ProofID{}, false
}

// insert adds peer to the index. It assumes the caller has already
// checked for outpoint conflicts via conflictsWith.
func (idx *proofIndex) insert(p *Peer) {
	idx.byID[p.Proof.ID()] = p
	for _, o := range p.Proof.outpoints() {
		idx.byOutpoint[o] = p.Proof.ID()
	}
	idx.insertScore(p.Proof)
}

func (idx *proofIndex) insertScore(proof *Proof) {
	i := idx.searchScore(proof.Score(), proof.ID())
	idx.byScoreAsc = append(idx.byScoreAsc, ProofID{})
	copy(idx.byScoreAsc[i+1:], idx.byScoreAsc[i:])
	idx.byScoreAsc[i] = proof.ID()
}

func (idx *proofIndex) searchScore(score uint32, id ProofID) int {
	return sort.Search(len(idx.byScoreAsc), func(i int) bool {
		other := idx.byID[idx.byScoreAsc[i]].Proof
		if other.Score() != score {
			return other.Score() > score
		}
		return compareProofID(other.ID(), id) >= 0
	})
}

// remove drops id from the index, returning the removed peer. The score
// slice is searched before byID is mutated: searchScore's comparator
// dereferences byID entries, so the deletion must come last.
func (idx *proofIndex) remove(id ProofID) (*Peer, bool) {
	p, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	i := idx.searchScore(p.Proof.Score(), id)
	if i < len(idx.byScoreAsc) && idx.byScoreAsc[i] == id {
		idx.byScoreAsc = append(idx.byScoreAsc[:i], idx.byScoreAsc[i+1:]...)
	}
	for _, o := range p.Proof.outpoints() {
		if idx.byOutpoint[o] == id {
			delete(idx.byOutpoint, o)
		}
	}
	delete(idx.byID, id)
	return p, true
}

// minScore returns the peer with the lowest (score, id) in the index.
func (idx *proofIndex) minScore() (*Peer, bool) {
	if len(idx.byScoreAsc) == 0 {
		return nil, false
	}
	return idx.byID[idx.byScoreAsc[0]], true
}

// forEach visits every peer in the index. Order is unspecified unless
// byScore is true, in which case peers are visited in ascending score
// order (the original's by_score index, supplemented per SPEC_FULL.md).
func (idx *proofIndex) forEach(byScore bool, visit func(*Peer) bool) {
	if byScore {
		for _, id := range idx.byScoreAsc {
			if !visit(idx.byID[id]) {
				return
			}
		}
		return
	}
	for _, p := range idx.byID {
		if !visit(p) {
			return
		}
	}
}
