// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"errors"
	"fmt"

	"github.com/luxfi/peermgr/peer/internal/wrappers"
)

var (
	errProofInMultiplePools   = errors.New("proof-id present in more than one pool")
	errOutpointDoubleBound    = errors.New("outpoint referenced by more than one Bound proof")
	errOutpointDoubleConflict = errors.New("outpoint referenced by more than one Conflicting proof")
	errSlotMismatch           = errors.New("peer's slot does not hold its peerId/score")
	errTotalScoreMismatch     = errors.New("totalPeersScore does not match the sum of Bound peers' scores")
	errConnectedScoreMismatch = errors.New("connectedPeersScore does not match the sum of connected peers' scores")
	errPendingNodeBound       = errors.New("pending node's proof-id is Bound")
)

// Verify checks the current state and returns true iff every check
// passes: no proof id sits in two pools (I1), no outpoint is staked by two
// Bound or two Conflicting proofs (I2), every Bound peer's slot holds its
// peer id and score (P1), both score totals match the Bound peers (I4),
// and no Pending node's proof id is Bound (P5). It does not check the
// ordering of slot starts, node exclusivity (I5), the slot table's own
// live-score total, or Select (P6). It is intended for tests and debug
// builds, not the hot path.
func (pm *PeerManager) Verify() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var errs wrappers.Errs

	pm.verifyPoolExclusivity(&errs)
	pm.verifyOutpointExclusivity(&errs)
	pm.verifySlotConsistency(&errs)
	pm.verifyScoreTotals(&errs)
	pm.verifyPendingNodes(&errs)

	if errs.Errored() {
		pm.log.Warn("peer manager invariant check failed", "error", errs.Err())
		return false
	}
	return true
}

func (pm *PeerManager) verifyPoolExclusivity(errs *wrappers.Errs) {
	seen := make(map[ProofID]int, pm.bound.len()+pm.conflicting.len()+pm.immature.len())
	for _, idx := range []*proofIndex{pm.bound, pm.conflicting, pm.immature} {
		idx.forEach(false, func(p *Peer) bool {
			seen[p.Proof.ID()]++
			return true
		})
	}
	for id, count := range seen {
		if count > 1 {
			errs.Add(fmt.Errorf("%w: %s", errProofInMultiplePools, id))
		}
	}
}

func (pm *PeerManager) verifyOutpointExclusivity(errs *wrappers.Errs) {
	boundOutpoints := make(map[Outpoint]ProofID)
	pm.bound.forEach(false, func(p *Peer) bool {
		for _, o := range p.Proof.outpoints() {
			if other, dup := boundOutpoints[o]; dup && other != p.Proof.ID() {
				errs.Add(fmt.Errorf("%w: %v", errOutpointDoubleBound, o))
			}
			boundOutpoints[o] = p.Proof.ID()
		}
		return true
	})

	conflictingOutpoints := make(map[Outpoint]ProofID)
	pm.conflicting.forEach(false, func(p *Peer) bool {
		for _, o := range p.Proof.outpoints() {
			if other, dup := conflictingOutpoints[o]; dup && other != p.Proof.ID() {
				errs.Add(fmt.Errorf("%w: %v", errOutpointDoubleConflict, o))
			}
			conflictingOutpoints[o] = p.Proof.ID()
		}
		return true
	})
}

func (pm *PeerManager) verifySlotConsistency(errs *wrappers.Errs) {
	pm.bound.forEach(false, func(p *Peer) bool {
		peerID, score, ok := pm.slots.PeerIDAt(p.SlotIndex)
		if !ok || peerID != p.PeerID || score != p.Proof.Score() {
			errs.Add(fmt.Errorf("%w: peer %d", errSlotMismatch, p.PeerID))
		}
		return true
	})
}

func (pm *PeerManager) verifyScoreTotals(errs *wrappers.Errs) {
	var total, connected uint64
	pm.bound.forEach(false, func(p *Peer) bool {
		total += uint64(p.Proof.Score())
		if p.NodeCount > 0 {
			connected += uint64(p.Proof.Score())
		}
		return true
	})
	if total != pm.totalPeersScore {
		errs.Add(fmt.Errorf("%w: have %d want %d", errTotalScoreMismatch, pm.totalPeersScore, total))
	}
	if connected != pm.connectedPeersScore {
		errs.Add(fmt.Errorf("%w: have %d want %d", errConnectedScoreMismatch, pm.connectedPeersScore, connected))
	}
}

func (pm *PeerManager) verifyPendingNodes(errs *wrappers.Errs) {
	for proofID := range pm.nodes.pendingByProof {
		if _, ok := pm.bound.get(proofID); ok {
			errs.Add(fmt.Errorf("%w: %s", errPendingNodeBound, proofID))
		}
	}
}
