// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

// prefer implements the strict weak order over proofs sharing an
// outpoint (§4.3). It returns true iff a is preferred over b. The
// discriminators are applied in order until one differs:
//
//  1. same masterPubKey: higher sequence wins.
//  2. higher score wins.
//  3. fewer stakes wins.
//  4. lower proof id wins (deterministic final tiebreak).
func prefer(a, b *Proof) bool {
	if a.id == b.id {
		return false
	}

	if a.masterPubKey.Equal(b.masterPubKey) {
		if a.sequence != b.sequence {
			return a.sequence > b.sequence
		}
	}

	if a.score != b.score {
		return a.score > b.score
	}

	if len(a.stakes) != len(b.stakes) {
		return len(a.stakes) < len(b.stakes)
	}

	return compareProofID(a.id, b.id) < 0
}
