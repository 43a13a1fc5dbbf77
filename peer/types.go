// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package peer implements the Avalanche peer manager: admission,
// conflict arbitration, weight-proportional sampling, and node binding
// for the set of proofs and nodes participating in pre-consensus.
package peer

import (
	"bytes"
	"encoding/hex"
	"time"

	"github.com/luxfi/ids"
)

// ProofID is the content-hash identifier of a proof.
type ProofID = ids.ID

// PeerID is the dense handle assigned to a proof at admission.
type PeerID uint32

// NodeID is the externally assigned handle of a network peer.
type NodeID int64

// NoPeer is the sentinel PeerID meaning "no peer", the last representable
// value rather than zero since zero is a valid assigned id (grounded on
// the original's NO_PEER == numeric_limits<uint32_t>::max()).
const NoPeer PeerID = ^PeerID(0)

// NoNode is the sentinel NodeID meaning "no node".
const NoNode NodeID = -1

// MasterPubKey is the compressed BLS public key authorizing revisions to
// a proof's sequence number. The core only ever compares these for
// equality (§1 excludes signature verification), so it stores the
// serialized key rather than a live crypto.PublicKey.
type MasterPubKey [48]byte

// Equal reports whether two master keys are the same key.
func (k MasterPubKey) Equal(other MasterPubKey) bool {
	return k == other
}

func (k MasterPubKey) String() string {
	return hex.EncodeToString(k[:])
}

// Outpoint identifies a single UTXO.
type Outpoint struct {
	TxID  ids.ID
	Index uint32
}

// Stake is one outpoint contributing to a proof.
type Stake struct {
	Outpoint   Outpoint
	Amount     uint64
	Height     int32
	IsCoinbase bool
}

// Proof is a signed declaration that a set of UTXOs is staked to
// participate in pre-consensus. Binary encoding and signature
// verification live outside the core (§1); a Proof here is always
// already decoded and structurally valid (non-empty, unique outpoints).
type Proof struct {
	id             ProofID
	sequence       int64
	expirationTime int64
	masterPubKey   MasterPubKey
	stakes         []Stake
	score          uint32
}

// scoreUnit is the amount of staked satoshis one unit of proof score
// represents. The exact constant is not specified by the protocol; it
// only needs to be a fixed, monotone function of the staked amount.
const scoreUnit uint64 = 1_000_000

// NewProof validates and constructs a Proof. It rejects an empty stake
// list or duplicate outpoints, mirroring the invariant the original
// proof deserializer enforces and that the core relies on (§3).
func NewProof(
	id ProofID,
	sequence int64,
	expirationTime int64,
	masterPubKey MasterPubKey,
	stakes []Stake,
) (*Proof, error) {
	if len(stakes) == 0 {
		return nil, ErrNoStakes
	}

	seen := make(map[Outpoint]struct{}, len(stakes))
	var total uint64
	for _, s := range stakes {
		if _, dup := seen[s.Outpoint]; dup {
			return nil, ErrDuplicateStake
		}
		seen[s.Outpoint] = struct{}{}
		total += s.Amount
	}

	cp := make([]Stake, len(stakes))
	copy(cp, stakes)

	return &Proof{
		id:             id,
		sequence:       sequence,
		expirationTime: expirationTime,
		masterPubKey:   masterPubKey,
		stakes:         cp,
		score:          computeScore(total),
	}, nil
}

func computeScore(totalAmount uint64) uint32 {
	score := totalAmount / scoreUnit
	if score > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(score)
}

// ID returns the proof's identifier.
func (p *Proof) ID() ProofID { return p.id }

// Sequence returns the proof's monotone revision number.
func (p *Proof) Sequence() int64 { return p.sequence }

// ExpirationTime returns the proof's expiration time (seconds since
// epoch), or 0 if it never expires.
func (p *Proof) ExpirationTime() int64 { return p.expirationTime }

// MasterPubKey returns the key authorizing sequence revisions.
func (p *Proof) MasterPubKey() MasterPubKey { return p.masterPubKey }

// Stakes returns the proof's staked outpoints. The returned slice must
// not be mutated.
func (p *Proof) Stakes() []Stake { return p.stakes }

// Score returns the proof's derived weight.
func (p *Proof) Score() uint32 { return p.score }

// outpoints returns the set of outpoints this proof stakes, for conflict
// detection against ProofIndex.
func (p *Proof) outpoints() []Outpoint {
	out := make([]Outpoint, len(p.stakes))
	for i, s := range p.stakes {
		out[i] = s.Outpoint
	}
	return out
}

// compareProofID returns a strict weak order over proof ids, used as the
// deterministic final tiebreak in ConflictArbiter.prefer.
func compareProofID(a, b ProofID) int {
	return bytes.Compare(a[:], b[:])
}

// Peer is the in-memory handle created when a proof is admitted to the
// Bound pool.
type Peer struct {
	PeerID                   PeerID
	Proof                    *Proof
	RegistrationTime         time.Time
	NextPossibleConflictTime time.Time
	NodeCount                int
	HasFinalized             bool
	SlotIndex                int
}

// Node is a network endpoint bound to a peer.
type Node struct {
	NodeID          NodeID
	PeerID          PeerID
	NextRequestTime time.Time
	AvaproofsSent   bool
}

// Coin is a UTXO as seen by the read-only chain view.
type Coin struct {
	Amount     uint64
	Height     int32
	IsCoinbase bool
	Spent      bool
}

// UTXOView is the read-only collaborator the core consults to validate
// and re-validate staked outpoints. It is expected to be a bounded
// in-memory snapshot (§5); an implementation backed by a database must
// snapshot before handing a view to the peer manager.
type UTXOView interface {
	GetCoin(Outpoint) (Coin, bool)
	TipHeight() int32
	MedianTimePast() int64
}

// VerifyResult is the structural/signature verdict a ProofVerifier
// returns, independent of the UTXO-driven admission result.
type VerifyResult int

const (
	// VerifyOK means the proof's structure and signature are valid.
	VerifyOK VerifyResult = iota
	// VerifyInvalid means the proof failed a structural, signature, or
	// payout-script check.
	VerifyInvalid
)

// ProofVerifier performs the structural and signature checks the core
// does not implement itself (§1).
type ProofVerifier interface {
	Verify(UTXOView, *Proof) (VerifyResult, error)
}
