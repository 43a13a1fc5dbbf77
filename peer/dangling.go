// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

// CleanupDanglingProofs removes Bound peers with no attached nodes that
// have outlived the configured dangling timeout (§4.7). localProof, if
// non-nil, is retained regardless of how long it has been dangling — a
// node's own proof is never swept out from under it.
func (pm *PeerManager) CleanupDanglingProofs(localProof *ProofID) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.wallClock()
	var toRemove []*Peer
	pm.bound.forEach(false, func(p *Peer) bool {
		if p.NodeCount != 0 {
			return true
		}
		if now.Sub(p.RegistrationTime) < pm.cfg.DanglingTimeout {
			return true
		}
		pm.raiseRequestMoreNodes()
		if localProof != nil && p.Proof.ID() == *localProof {
			return true
		}
		toRemove = append(toRemove, p)
		return true
	})

	if len(toRemove) == 0 {
		return
	}
	for _, p := range toRemove {
		pm.bound.remove(p.Proof.ID())
		pm.removeBoundAccounting(p)
		pm.dangling.Add(p.Proof.ID())
		pm.metrics.danglingSweeps.Inc()
	}
	pm.reconsiderConflicting()
	pm.refreshPoolMetrics()
}
