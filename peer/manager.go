// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/peermgr/peer/internal/randsrc"
	"github.com/luxfi/peermgr/peer/internal/safemath"
	"github.com/luxfi/peermgr/peer/internal/set"
)

// Clock is an injectable time source (§5, §9: "take clocks as injected
// functions for testability").
type Clock func() time.Time

// PeerManager is the single public façade of the core (§6): it admits,
// arbitrates, indexes, and weight-samples proofs and nodes for Avalanche
// pre-consensus. All mutating operations are serialized under mu
// (single-writer, many-reader, §5); read-only observers take the shared
// lock except GetShareableProofsSnapshot, which briefly takes the write
// lock to rebuild a stale snapshot and then hands out a lock-free handle.
type PeerManager struct {
	mu sync.RWMutex

	cfg      Config
	verifier ProofVerifier
	log      log.Logger
	metrics  *metrics

	wallClock   Clock
	steadyClock Clock
	rng         randsrc.Source

	slots *SlotTable
	nodes *nodeBinder

	bound       *proofIndex
	conflicting *proofIndex
	immature    *proofIndex
	peerByID    map[PeerID]*Peer

	nextPeerID PeerID

	invalidated set.Set[ProofID]
	dangling    set.Set[ProofID]

	totalPeersScore     uint64
	connectedPeersScore uint64

	requestMoreNodes bool

	snapshot snapshotPublisher
}

// Option configures optional PeerManager construction parameters.
type Option func(*PeerManager)

// WithWallClock overrides the wall clock used for registrationTime, the
// conflict cooldown (nextPossibleConflictTime) and the dangling timeout.
// Expiration is compared against the UTXO view's median time past instead.
func WithWallClock(c Clock) Option { return func(pm *PeerManager) { pm.wallClock = c } }

// WithSteadyClock overrides the monotonic clock used for selectNode's
// nextRequestTime comparisons.
func WithSteadyClock(c Clock) Option { return func(pm *PeerManager) { pm.steadyClock = c } }

// WithRandSource overrides the randomness source behind selectPeer, for
// deterministic tests.
func WithRandSource(src randsrc.Source) Option { return func(pm *PeerManager) { pm.rng = src } }

// NewPeerManager constructs a PeerManager. verifier performs the
// structural/signature checks the core does not implement (§1); reg
// registers the peer manager's Prometheus metrics.
func NewPeerManager(
	cfg Config,
	verifier ProofVerifier,
	logger log.Logger,
	reg prometheus.Registerer,
	opts ...Option,
) (*PeerManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	pm := &PeerManager{
		cfg:         cfg,
		verifier:    verifier,
		log:         logger,
		metrics:     m,
		wallClock:   time.Now,
		steadyClock: time.Now,
		rng:         randsrc.New(),
		slots:       NewSlotTable(),
		nodes:       newNodeBinder(),
		bound:       newProofIndex(),
		conflicting: newProofIndex(),
		immature:    newProofIndex(),
		peerByID:    make(map[PeerID]*Peer),
		invalidated: set.NewSet[ProofID](0),
		dangling:    set.NewSet[ProofID](0),
	}
	pm.snapshot.rebuild = pm.buildSnapshot
	pm.snapshot.dirty = true
	for _, opt := range opts {
		opt(pm)
	}
	return pm, nil
}

// exists reports whether proofId is known to the Bound, Conflicting, or
// Immature pool.
func (pm *PeerManager) Exists(id ProofID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.existsLocked(id)
}

func (pm *PeerManager) existsLocked(id ProofID) bool {
	if _, ok := pm.bound.get(id); ok {
		return true
	}
	if _, ok := pm.conflicting.get(id); ok {
		return true
	}
	if _, ok := pm.immature.get(id); ok {
		return true
	}
	return false
}

// IsBoundToPeer reports whether id is in the Bound pool.
func (pm *PeerManager) IsBoundToPeer(id ProofID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.bound.get(id)
	return ok
}

// IsInConflictingPool reports whether id is in the Conflicting pool.
func (pm *PeerManager) IsInConflictingPool(id ProofID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.conflicting.get(id)
	return ok
}

// IsImmature reports whether id is in the Immature pool.
func (pm *PeerManager) IsImmature(id ProofID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	_, ok := pm.immature.get(id)
	return ok
}

// GetProof returns the proof registered under id, in any pool.
func (pm *PeerManager) GetProof(id ProofID) (*Proof, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if p, ok := pm.bound.get(id); ok {
		return p.Proof, true
	}
	if p, ok := pm.conflicting.get(id); ok {
		return p.Proof, true
	}
	if p, ok := pm.immature.get(id); ok {
		return p.Proof, true
	}
	return nil, false
}

// GetTotalPeersScore returns the sum of the score of every Bound peer.
func (pm *PeerManager) GetTotalPeersScore() uint64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.totalPeersScore
}

// GetConnectedPeersScore returns the sum of the score of every Bound peer
// with at least one attached node.
func (pm *PeerManager) GetConnectedPeersScore() uint64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.connectedPeersScore
}

// GetNodeCount returns the number of Bound nodes.
func (pm *PeerManager) GetNodeCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.nodes.boundCount()
}

// GetPendingNodeCount returns the number of Pending nodes.
func (pm *PeerManager) GetPendingNodeCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.nodes.pendingCount()
}

// GetSlotCount returns the slot table's slot count (§4.1).
func (pm *PeerManager) GetSlotCount() uint64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.slots.SlotCount()
}

// GetFragmentation returns the slot table's current fragmentation.
func (pm *PeerManager) GetFragmentation() uint64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.slots.Fragmentation()
}

// Compact rebuilds the slot table, dropping tombstones.
func (pm *PeerManager) Compact() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	reclaimed := pm.slots.Compact(func(peerID PeerID, newIndex int) {
		if p, ok := pm.peerByID[peerID]; ok {
			p.SlotIndex = newIndex
		}
	})
	pm.metrics.fragmentation.Set(float64(pm.slots.Fragmentation()))
	return reclaimed
}

// ForEachPeer visits every Bound peer until visit returns false.
func (pm *PeerManager) ForEachPeer(visit func(*Peer) bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.bound.forEach(false, visit)
}

// ForEachPeerByScore visits every Bound peer in ascending score order
// (supplemented from the original's by_score test accessor, SPEC_FULL.md).
func (pm *PeerManager) ForEachPeerByScore(visit func(*Peer) bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pm.bound.forEach(true, visit)
}

// ForPeer visits the Bound peer for proofID, if any.
func (pm *PeerManager) ForPeer(proofID ProofID, visit func(*Peer) bool) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.bound.get(proofID)
	if !ok {
		return false
	}
	return visit(p)
}

// ForNode visits the node bound to nodeID, if any.
func (pm *PeerManager) ForNode(nodeID NodeID, visit func(*Node) bool) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	n, ok := pm.nodes.get(nodeID)
	if !ok {
		return false
	}
	return visit(n)
}

// ShouldRequestMoreNodes is a one-shot read: it returns the current value
// of the flag and clears it (§4.5).
func (pm *PeerManager) ShouldRequestMoreNodes() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	v := pm.requestMoreNodes
	pm.requestMoreNodes = false
	return v
}

func (pm *PeerManager) raiseRequestMoreNodes() {
	pm.requestMoreNodes = true
}

// addScore and subScore keep totalPeersScore/connectedPeersScore
// in sync using checked arithmetic (I4); an error here means a prior bug
// already broke the accounting invariant, so it is logged rather than
// propagated through every caller.
func (pm *PeerManager) addScore(total *uint64, delta uint32) {
	v, err := safemath.Add64(*total, uint64(delta))
	if err != nil {
		pm.log.Error("score accumulator overflow", "error", err)
		return
	}
	*total = v
}

func (pm *PeerManager) subScore(total *uint64, delta uint32) {
	v, err := safemath.Sub64(*total, uint64(delta))
	if err != nil {
		pm.log.Error("score accumulator underflow", "error", err)
		return
	}
	*total = v
}

// AddNode binds nodeID to proofID's peer if it is Bound, otherwise places
// nodeID in the Pending set (§4.5).
func (pm *PeerManager) AddNode(nodeID NodeID, proofID ProofID) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, ok := pm.bound.get(proofID)
	if !ok {
		pm.nodes.dropPending(nodeID)
		if existing, bound := pm.nodes.get(nodeID); bound {
			pm.nodes.unbindOne(existing)
			pm.dropNodeFromPeer(existing.PeerID)
		}
		pm.nodes.addPending(nodeID, proofID)
		pm.metrics.pendingNodes.Set(float64(pm.nodes.pendingCount()))
		return false
	}

	if existing, bound := pm.nodes.get(nodeID); bound && existing.PeerID != p.PeerID {
		pm.dropNodeFromPeer(existing.PeerID)
	}
	wasConnected := p.NodeCount > 0
	pm.nodes.bind(nodeID, p)
	if !wasConnected && p.NodeCount > 0 {
		pm.addScore(&pm.connectedPeersScore, p.Proof.Score())
		pm.metrics.connectedScore.Set(float64(pm.connectedPeersScore))
	}
	pm.metrics.pendingNodes.Set(float64(pm.nodes.pendingCount()))
	return true
}

// dropNodeFromPeer decrements peerID's node count after one of its nodes
// moved away, releasing its connected-score contribution if that was the
// last one (I4).
func (pm *PeerManager) dropNodeFromPeer(peerID PeerID) {
	p, ok := pm.peerByID[peerID]
	if !ok {
		return
	}
	p.NodeCount--
	if p.NodeCount == 0 {
		pm.subScore(&pm.connectedPeersScore, p.Proof.Score())
		pm.metrics.connectedScore.Set(float64(pm.connectedPeersScore))
	}
}

// RemoveNode removes nodeID from whichever set it belongs to (§4.5).
func (pm *PeerManager) RemoveNode(nodeID NodeID) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	peerID, ok := pm.nodes.removeNode(nodeID)
	if !ok {
		return false
	}
	pm.dropNodeFromPeer(peerID)
	pm.metrics.pendingNodes.Set(float64(pm.nodes.pendingCount()))
	return true
}

// UpdateNextRequestTime sets nodeID's next selectNode eligibility (§4.5).
func (pm *PeerManager) UpdateNextRequestTime(nodeID NodeID, t time.Time) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	n, ok := pm.nodes.get(nodeID)
	if !ok {
		return false
	}
	n.NextRequestTime = t
	return true
}

// UpdateNextPossibleConflictTime advances peerID's cooldown expiry. It
// refuses to move the time backward (§6).
func (pm *PeerManager) UpdateNextPossibleConflictTime(peerID PeerID, t time.Time) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.peerByID[peerID]
	if !ok {
		return false
	}
	if t.After(p.NextPossibleConflictTime) {
		p.NextPossibleConflictTime = t
	}
	return true
}

// LatchAvaproofsSent marks nodeID's avaproofs exchange complete, and
// reports whether this call performed the first latch (§6). The first
// latch on any of a peer's nodes also marks the peer itself finalized.
func (pm *PeerManager) LatchAvaproofsSent(nodeID NodeID) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	n, ok := pm.nodes.get(nodeID)
	if !ok || n.AvaproofsSent {
		return false
	}
	n.AvaproofsSent = true
	if p, ok := pm.peerByID[n.PeerID]; ok {
		p.HasFinalized = true
	}
	return true
}
