// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

// maxSelectNodeAttempts bounds selectNode's retry loop (§4.9: "repeat up
// to a fixed attempt budget").
const maxSelectNodeAttempts = 16

// SelectPeer draws a peer weighted by its proof's score (§4.9).
func (pm *PeerManager) SelectPeer() (PeerID, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.selectPeerLocked()
}

func (pm *PeerManager) selectPeerLocked() (PeerID, bool) {
	total := pm.slots.SlotCount()
	if total == 0 {
		return NoPeer, false
	}
	s := pm.rng.Uint64() % total
	return pm.slots.Select(s, total)
}

// SelectNode draws an eligible node (nextRequestTime ≤ now) weighted by
// its peer's score (§4.9).
func (pm *PeerManager) SelectNode() (NodeID, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.steadyClock()
	for attempt := 0; attempt < maxSelectNodeAttempts; attempt++ {
		peerID, ok := pm.selectPeerLocked()
		if !ok {
			break
		}
		p, ok := pm.peerByID[peerID]
		if !ok {
			continue
		}
		var eligible []NodeID
		for nodeID, node := range pm.nodes.bound {
			if node.PeerID == p.PeerID && !node.NextRequestTime.After(now) {
				eligible = append(eligible, nodeID)
			}
		}
		if len(eligible) == 0 {
			continue
		}
		return eligible[pm.rng.Uint64()%uint64(len(eligible))], true
	}

	pm.raiseRequestMoreNodes()
	return NoNode, false
}
