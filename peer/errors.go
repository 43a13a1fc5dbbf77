// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import "errors"

// Construction-time errors (§3's invariant that deserialization rejects
// duplicate outpoints; the core relies on it, so NewProof enforces it).
var (
	ErrNoStakes       = errors.New("proof has no stakes")
	ErrDuplicateStake = errors.New("proof has duplicate staked outpoint")
)

// RegisterResult is the taxonomy of outcomes from RegisterProof (§7).
type RegisterResult int

const (
	// Valid means the proof was accepted into the Bound pool.
	Valid RegisterResult = iota
	// AlreadyRegistered means the proof id is already Bound, Conflicting or
	// Immature.
	AlreadyRegistered
	// Invalid means the proof failed structural/signature/payout checks.
	Invalid
	// MissingUTXO means at least one staked outpoint was not found.
	MissingUTXO
	// Immature means every outpoint was found but at least one is below
	// the configured maturity depth.
	Immature
	// Conflicting means the proof was admitted to the Conflicting pool.
	Conflicting
	// Rejected means the proof would belong in the Conflicting pool but
	// the pool is full and it does not beat the current minimum.
	Rejected
	// CooldownNotElapsed means the proof conflicts with a Bound proof
	// whose cooldown has not yet elapsed.
	CooldownNotElapsed
	// Dangling means the proof id was recently swept as dangling and
	// must not be re-admitted until a node binds to it again.
	Dangling
)

func (r RegisterResult) String() string {
	switch r {
	case Valid:
		return "valid"
	case AlreadyRegistered:
		return "already-registered"
	case Invalid:
		return "invalid"
	case MissingUTXO:
		return "missing-utxo"
	case Immature:
		return "immature"
	case Conflicting:
		return "conflicting"
	case Rejected:
		return "rejected"
	case CooldownNotElapsed:
		return "cooldown-not-elapsed"
	case Dangling:
		return "dangling"
	default:
		return "unknown"
	}
}

// RegistrationState is the structured outcome of RegisterProof.
type RegistrationState struct {
	Result RegisterResult
	Err    error
}

// RejectMode controls the side effects of rejectProof (§6).
type RejectMode int

const (
	// RejectDefault removes the proof with no further bookkeeping beyond
	// promoting the best conflicting rival.
	RejectDefault RejectMode = iota
	// RejectInvalidate additionally memoizes the proof as invalidated so
	// it cannot be re-registered for the lifetime of this PeerManager.
	RejectInvalidate
)

// RegisterMode controls whether registration obeys the conflict
// preference and cooldown checks (§4.4).
type RegisterMode int

const (
	// ModeDefault obeys the conflict preference check and cooldown.
	ModeDefault RegisterMode = iota
	// ModeForceAccept bypasses the conflict preference check and the
	// cooldown, unconditionally promoting the candidate to Bound and
	// demoting any incumbent to Conflicting. It never bypasses
	// expiration or immaturity checks (§9's open question, resolved in
	// DESIGN.md): a proof that is expired or immature is never admitted
	// to Bound regardless of mode.
	ModeForceAccept
)
