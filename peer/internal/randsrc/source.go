// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package randsrc provides the process-wide randomness source behind
// selectPeer/selectNode's weighted sampling (spec §4.9, §5: "a
// process-wide PRNG; call order is not specified but the weight
// distribution is").
package randsrc

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
)

// Source draws uniformly distributed 64-bit values.
type Source interface {
	Uint64() uint64
}

type source struct {
	*mrand.Rand
}

// New returns a Source seeded from the OS CSPRNG, suitable for production
// use where call order (and therefore reproducibility) does not matter.
func New() Source {
	return &source{Rand: mrand.New(mrand.NewSource(cryptoSeed()))}
}

// NewDeterministic returns a Source seeded with [seed], for tests that need
// reproducible draws (spec §8's sampling-fairness law is checked with a
// tolerance, not bit-for-bit, but scenario replay benefits from determinism).
func NewDeterministic(seed int64) Source {
	return &source{Rand: mrand.New(mrand.NewSource(seed))}
}

func cryptoSeed() int64 {
	max := big.NewInt(0).SetUint64(^uint64(0) >> 1)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		return int64(binary.BigEndian.Uint64(buf[:]))
	}
	return n.Int64()
}
