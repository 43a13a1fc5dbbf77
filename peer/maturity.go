// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

// UpdatedBlockTip re-validates every Bound and Immature proof against the
// current chain view, demoting, removing, or promoting as needed, and
// re-evaluates the Conflicting pool for any incumbent that fell out of
// Bound (§4.6).
func (pm *PeerManager) UpdatedBlockTip(view UTXOView) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var toRemove, toDemote []*Peer
	pm.bound.forEach(false, func(p *Peer) bool {
		missing, immature := pm.evaluateStakes(view, p.Proof)
		switch {
		case missing:
			toRemove = append(toRemove, p)
		case immature:
			toDemote = append(toDemote, p)
		}
		return true
	})
	for _, p := range toRemove {
		pm.bound.remove(p.Proof.ID())
		pm.removeBoundAccounting(p)
	}
	for _, p := range toDemote {
		pm.bound.remove(p.Proof.ID())
		pm.removeBoundAccounting(p)
		p.PeerID = NoPeer
		p.SlotIndex = -1
		pm.admitToImmature(p)
	}

	var ready, stale []*Peer
	pm.immature.forEach(false, func(p *Peer) bool {
		missing, immature := pm.evaluateStakes(view, p.Proof)
		switch {
		case missing:
			stale = append(stale, p)
		case !immature:
			ready = append(ready, p)
		}
		return true
	})
	for _, p := range stale {
		pm.immature.remove(p.Proof.ID())
	}
	for _, p := range ready {
		pm.immature.remove(p.Proof.ID())
		pm.promoteFromImmature(p)
	}

	pm.reconsiderConflicting()
	pm.refreshPoolMetrics()
}

// evaluateStakes reports whether proof has become unspendable (missing
// UTXO or expired) or remains below the configured maturity depth.
func (pm *PeerManager) evaluateStakes(view UTXOView, proof *Proof) (missing, immature bool) {
	if proof.ExpirationTime() != 0 && proof.ExpirationTime() <= view.MedianTimePast() {
		return true, false
	}
	for _, s := range proof.Stakes() {
		coin, ok := view.GetCoin(s.Outpoint)
		if !ok || coin.Spent {
			return true, false
		}
		depth := view.TipHeight() - coin.Height + 1
		if depth < pm.cfg.StakeUtxoConfirmations {
			immature = true
		}
	}
	return false, immature
}

// promoteFromImmature attempts to re-admit a now-mature proof via the
// same conflict-preference and cooldown rules RegisterProof applies in
// ModeDefault, parking it in Conflicting if it loses or the incumbent's
// cooldown has not elapsed. If the Conflicting pool refuses it, the proof
// is dropped.
func (pm *PeerManager) promoteFromImmature(p *Peer) {
	incumbentID, conflict := pm.bound.conflictsWith(p.Proof)
	if !conflict {
		pm.admitToBound(p)
		return
	}

	incumbent, _ := pm.bound.get(incumbentID)
	if pm.wallClock().Before(incumbent.NextPossibleConflictTime) {
		pm.admitToConflicting(p)
		return
	}
	if prefer(p.Proof, incumbent.Proof) {
		pm.demoteToConflicting(incumbent)
		pm.admitToBound(p)
		return
	}
	pm.admitToConflicting(p)
}
