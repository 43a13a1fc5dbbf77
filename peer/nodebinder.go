// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import "github.com/luxfi/peermgr/peer/internal/set"

// nodeBinder maintains the many-to-one mapping from nodes to Bound peers,
// plus the Pending set of nodes referencing a not-yet-known (or not yet
// Bound) proof id (§4.5). Invariant I5: a nodeId is either Pending or
// Bound to exactly one Peer, never both; nodeBinder enforces this by
// construction, never touching the Pending map for an id present in
// bound or vice versa without first removing it from the other.
type nodeBinder struct {
	bound          map[NodeID]*Node
	pending        map[NodeID]ProofID
	pendingByProof map[ProofID]set.Set[NodeID]
}

func newNodeBinder() *nodeBinder {
	return &nodeBinder{
		bound:          make(map[NodeID]*Node),
		pending:        make(map[NodeID]ProofID),
		pendingByProof: make(map[ProofID]set.Set[NodeID]),
	}
}

func (b *nodeBinder) addPending(nodeID NodeID, proofID ProofID) {
	ids, ok := b.pendingByProof[proofID]
	if !ok {
		ids = set.NewSet[NodeID](1)
		b.pendingByProof[proofID] = ids
	}
	ids.Add(nodeID)
	b.pending[nodeID] = proofID
}

func (b *nodeBinder) dropPending(nodeID NodeID) {
	proofID, ok := b.pending[nodeID]
	if !ok {
		return
	}
	delete(b.pending, nodeID)
	if ids, ok := b.pendingByProof[proofID]; ok {
		ids.Remove(nodeID)
		if ids.Len() == 0 {
			delete(b.pendingByProof, proofID)
		}
	}
}

// bind attaches nodeID to peer, removing any prior Pending entry for
// that node first (addNode's "If previously Pending or bound elsewhere,
// update the mapping"). A node moving between peers keeps its Node state
// (nextRequestTime, avaproofsSent latch); the caller is responsible for
// decrementing the previous peer's node count.
func (b *nodeBinder) bind(nodeID NodeID, peer *Peer) *Node {
	if existing, ok := b.bound[nodeID]; ok {
		if existing.PeerID == peer.PeerID {
			return existing
		}
		existing.PeerID = peer.PeerID
		peer.NodeCount++
		return existing
	}

	b.dropPending(nodeID)
	node := &Node{NodeID: nodeID, PeerID: peer.PeerID}
	b.bound[nodeID] = node
	peer.NodeCount++
	return node
}

func (b *nodeBinder) unbindOne(node *Node) {
	delete(b.bound, node.NodeID)
}

// removeNode removes nodeID from whichever set it belongs to. It returns
// the peer id it was bound to (if any) so the caller can decrement
// nodeCount, and false if the node was absent entirely.
func (b *nodeBinder) removeNode(nodeID NodeID) (PeerID, bool) {
	if node, ok := b.bound[nodeID]; ok {
		delete(b.bound, nodeID)
		return node.PeerID, true
	}
	if _, ok := b.pending[nodeID]; ok {
		b.dropPending(nodeID)
		return NoPeer, true
	}
	return NoPeer, false
}

// promote moves every Pending node referencing proofID onto peer, called
// when proofID transitions into Bound.
func (b *nodeBinder) promote(proofID ProofID, peer *Peer) {
	ids, ok := b.pendingByProof[proofID]
	if !ok {
		return
	}
	delete(b.pendingByProof, proofID)
	for _, nodeID := range ids.List() {
		delete(b.pending, nodeID)
		node := &Node{NodeID: nodeID, PeerID: peer.PeerID}
		b.bound[nodeID] = node
		peer.NodeCount++
	}
}

// demote moves every node bound to peer back to Pending keyed by
// proofID, called when peer's proof transitions out of Bound.
func (b *nodeBinder) demote(proofID ProofID, peer *Peer) {
	for nodeID, node := range b.bound {
		if node.PeerID != peer.PeerID {
			continue
		}
		delete(b.bound, nodeID)
		b.addPending(nodeID, proofID)
	}
	peer.NodeCount = 0
}

func (b *nodeBinder) get(nodeID NodeID) (*Node, bool) {
	n, ok := b.bound[nodeID]
	return n, ok
}

// hasPendingFor reports whether any node is waiting on proofID. A swept
// dangling proof may be re-registered once such a node exists (§4.7).
func (b *nodeBinder) hasPendingFor(proofID ProofID) bool {
	ids, ok := b.pendingByProof[proofID]
	return ok && ids.Len() > 0
}

func (b *nodeBinder) boundCount() int   { return len(b.bound) }
func (b *nodeBinder) pendingCount() int { return len(b.pending) }
