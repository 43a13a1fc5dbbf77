// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

// RegisterProof is the single admission entry point (§4.4). view is a
// caller-supplied snapshot of the current chain state; the peer manager
// never retains it past this call.
func (pm *PeerManager) RegisterProof(proof *Proof, view UTXOView, mode RegisterMode) (bool, RegistrationState) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	id := proof.ID()

	if pm.dangling.Contains(id) {
		// A swept proof stays blocked until a node shows up wanting it
		// (§4.7's "must not be re-admitted until a corresponding node
		// binds").
		if !pm.nodes.hasPendingFor(id) {
			pm.raiseRequestMoreNodes()
			return false, RegistrationState{Result: Dangling}
		}
		pm.dangling.Remove(id)
	}
	if pm.invalidated.Contains(id) {
		return false, RegistrationState{Result: Invalid}
	}
	if pm.existsLocked(id) {
		return false, RegistrationState{Result: AlreadyRegistered}
	}

	if res, err := pm.verifier.Verify(view, proof); err != nil || res != VerifyOK {
		return false, RegistrationState{Result: Invalid, Err: err}
	}
	if proof.ExpirationTime() != 0 && proof.ExpirationTime() <= view.MedianTimePast() {
		return false, RegistrationState{Result: Invalid}
	}
	for _, s := range proof.Stakes() {
		if s.Amount < pm.cfg.ProofDustThreshold {
			return false, RegistrationState{Result: Invalid}
		}
	}

	immature := false
	for _, s := range proof.Stakes() {
		coin, ok := view.GetCoin(s.Outpoint)
		if !ok || coin.Spent {
			return false, RegistrationState{Result: MissingUTXO}
		}
		depth := view.TipHeight() - coin.Height + 1
		if depth < pm.cfg.StakeUtxoConfirmations {
			immature = true
		}
	}

	if immature {
		p := &Peer{PeerID: NoPeer, SlotIndex: -1, Proof: proof}
		if pm.admitToImmature(p) {
			pm.metrics.immature.Set(float64(pm.immature.len()))
			return true, RegistrationState{Result: Immature}
		}
		return false, RegistrationState{Result: Rejected}
	}

	incumbentID, conflict := pm.bound.conflictsWith(proof)
	if !conflict {
		p := &Peer{Proof: proof}
		pm.admitToBound(p)
		pm.refreshPoolMetrics()
		return true, RegistrationState{Result: Valid}
	}

	incumbent, _ := pm.bound.get(incumbentID)
	if mode != ModeForceAccept {
		if pm.wallClock().Before(incumbent.NextPossibleConflictTime) {
			return false, RegistrationState{Result: CooldownNotElapsed}
		}
		if !prefer(proof, incumbent.Proof) {
			p := &Peer{PeerID: NoPeer, SlotIndex: -1, Proof: proof}
			if pm.admitToConflicting(p) {
				pm.refreshPoolMetrics()
				return true, RegistrationState{Result: Conflicting}
			}
			return false, RegistrationState{Result: Rejected}
		}
	}

	pm.demoteToConflicting(incumbent)
	p := &Peer{Proof: proof}
	pm.admitToBound(p)
	pm.refreshPoolMetrics()
	return true, RegistrationState{Result: Valid}
}

// RejectProof removes proofID from whichever pool holds it. mode controls
// whether the id is memoized so it can never be re-registered (§6).
func (pm *PeerManager) RejectProof(proofID ProofID, mode RejectMode) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	removed := false
	if p, ok := pm.bound.remove(proofID); ok {
		pm.removeBoundAccounting(p)
		pm.reconsiderConflicting()
		removed = true
	} else if _, ok := pm.conflicting.remove(proofID); ok {
		removed = true
	} else if _, ok := pm.immature.remove(proofID); ok {
		removed = true
	}

	if !removed {
		return false
	}
	if mode == RejectInvalidate {
		pm.invalidated.Add(proofID)
	}
	pm.refreshPoolMetrics()
	return true
}

// RemovePeer removes the Bound peer holding peerID, promoting the best
// Conflicting rival left standing on its outpoints (§4.4).
func (pm *PeerManager) RemovePeer(peerID PeerID) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.removePeerLocked(peerID)
}

func (pm *PeerManager) removePeerLocked(peerID PeerID) bool {
	p, ok := pm.peerByID[peerID]
	if !ok {
		return false
	}
	pm.bound.remove(p.Proof.ID())
	pm.removeBoundAccounting(p)
	pm.reconsiderConflicting()
	pm.refreshPoolMetrics()
	return true
}

// admitToBound assigns p a fresh PeerID and slot, and attaches any nodes
// already Pending on its proof id.
func (pm *PeerManager) admitToBound(p *Peer) {
	p.PeerID = pm.nextPeerID
	pm.nextPeerID++
	p.RegistrationTime = pm.wallClock()
	p.NextPossibleConflictTime = p.RegistrationTime.Add(pm.cfg.ConflictingProofCooldown)
	p.SlotIndex = pm.slots.Append(p.Proof.Score(), p.PeerID)

	pm.bound.insert(p)
	pm.peerByID[p.PeerID] = p
	pm.addScore(&pm.totalPeersScore, p.Proof.Score())

	pm.nodes.promote(p.Proof.ID(), p)
	if p.NodeCount > 0 {
		pm.addScore(&pm.connectedPeersScore, p.Proof.Score())
	}
	pm.snapshot.markDirty()
}

// admitToConflicting enforces I2 (at most one Conflicting proof per
// outpoint) and the pool's score-eviction cap (§3). A rival already in
// the pool on one of p's outpoints either beats p, in which case p is
// dropped, or is evicted in p's favor. It reports whether p was admitted.
func (pm *PeerManager) admitToConflicting(p *Peer) bool {
	for {
		rivalID, ok := pm.conflicting.conflictsWith(p.Proof)
		if !ok {
			break
		}
		rival, _ := pm.conflicting.get(rivalID)
		if prefer(rival.Proof, p.Proof) {
			return false
		}
		pm.conflicting.remove(rivalID)
	}

	if pm.conflicting.len() >= pm.cfg.MaxConflictingProofs {
		min, _ := pm.conflicting.minScore()
		if p.Proof.Score() <= min.Proof.Score() {
			return false
		}
		pm.conflicting.remove(min.Proof.ID())
	}
	pm.conflicting.insert(p)
	return true
}

// admitToImmature enforces the Immature pool's score-eviction cap (§4.4's
// "evicts lowest-score, may be self" rule).
func (pm *PeerManager) admitToImmature(p *Peer) bool {
	if pm.immature.len() >= pm.cfg.MaxImmatureProofs {
		min, _ := pm.immature.minScore()
		if p.Proof.Score() <= min.Proof.Score() {
			return false
		}
		pm.immature.remove(min.Proof.ID())
	}
	pm.immature.insert(p)
	return true
}

// demoteToConflicting moves a Bound peer that just lost a conflict into
// the Conflicting pool, reusing the same *Peer and unbinding its nodes
// back to Pending. If the Conflicting pool has no room for it, it is
// dropped entirely.
func (pm *PeerManager) demoteToConflicting(p *Peer) {
	pm.bound.remove(p.Proof.ID())
	pm.removeBoundAccounting(p)
	p.PeerID = NoPeer
	p.SlotIndex = -1
	pm.admitToConflicting(p)
}

// removeBoundAccounting undoes every side effect admitToBound performed
// for p: its slot, its contribution to the score totals, its peerByID
// entry, and its attached nodes (moved back to Pending). The caller is
// responsible for removing p from pm.bound itself.
func (pm *PeerManager) removeBoundAccounting(p *Peer) {
	pm.slots.Remove(p.SlotIndex)
	pm.subScore(&pm.totalPeersScore, p.Proof.Score())
	if p.NodeCount > 0 {
		pm.subScore(&pm.connectedPeersScore, p.Proof.Score())
	}
	pm.nodes.demote(p.Proof.ID(), p)
	delete(pm.peerByID, p.PeerID)
	pm.snapshot.markDirty()
}

// reconsiderConflicting re-scans the Conflicting pool for any member that
// no longer shares an outpoint with a Bound proof and promotes it,
// looping since one promotion can free another (§4.4, §4.6 step 3).
func (pm *PeerManager) reconsiderConflicting() {
	for {
		promoted := false
		for _, id := range append([]ProofID(nil), pm.conflicting.byScoreAsc...) {
			cand, ok := pm.conflicting.get(id)
			if !ok {
				continue
			}
			if _, conflict := pm.bound.conflictsWith(cand.Proof); conflict {
				continue
			}
			pm.conflicting.remove(id)
			cand.PeerID = NoPeer
			cand.SlotIndex = -1
			pm.admitToBound(cand)
			promoted = true
		}
		if !promoted {
			break
		}
	}
}

func (pm *PeerManager) refreshPoolMetrics() {
	pm.metrics.totalScore.Set(float64(pm.totalPeersScore))
	pm.metrics.connectedScore.Set(float64(pm.connectedPeersScore))
	pm.metrics.bound.Set(float64(pm.bound.len()))
	pm.metrics.conflicting.Set(float64(pm.conflicting.len()))
	pm.metrics.immature.Set(float64(pm.immature.len()))
	pm.metrics.pendingNodes.Set(float64(pm.nodes.pendingCount()))
	pm.metrics.fragmentation.Set(float64(pm.slots.Fragmentation()))
}
