// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func mustProof(t *testing.T, id ids.ID, key byte, seq int64, amount uint64) *Proof {
	t.Helper()
	p, err := NewProof(id, seq, 0, MasterPubKey{key}, []Stake{
		{Outpoint: testOutpoint(id[0] + 1), Amount: amount},
	})
	require.NoError(t, err)
	return p
}

func TestArbiterPreferHigherSequenceSameKey(t *testing.T) {
	require := require.New(t)
	a := mustProof(t, ids.ID{1}, 0xAA, 40, 2_000_000)
	b := mustProof(t, ids.ID{2}, 0xAA, 30, 2_000_000)

	require.True(prefer(a, b))
	require.False(prefer(b, a))
}

func TestArbiterPreferHigherScore(t *testing.T) {
	require := require.New(t)
	a := mustProof(t, ids.ID{1}, 0xAA, 10, 3_000_000)
	b := mustProof(t, ids.ID{2}, 0xBB, 10, 1_000_000)

	require.True(prefer(a, b))
	require.False(prefer(b, a))
}

func TestArbiterPreferFewerStakes(t *testing.T) {
	require := require.New(t)
	a, err := NewProof(ids.ID{1}, 0, 0, MasterPubKey{0xAA}, []Stake{
		{Outpoint: testOutpoint(10), Amount: 1_000_000},
	})
	require.NoError(err)
	b, err := NewProof(ids.ID{2}, 0, 0, MasterPubKey{0xBB}, []Stake{
		{Outpoint: testOutpoint(11), Amount: 500_000},
		{Outpoint: testOutpoint(12), Amount: 500_000},
	})
	require.NoError(err)
	require.Equal(a.Score(), b.Score())

	require.True(prefer(a, b))
	require.False(prefer(b, a))
}

func TestArbiterPreferLowerIDTiebreak(t *testing.T) {
	require := require.New(t)
	a := mustProof(t, ids.ID{1}, 0xAA, 0, 1_000_000)
	b := mustProof(t, ids.ID{2}, 0xBB, 0, 1_000_000)

	require.True(prefer(a, b))
	require.False(prefer(b, a))
}

func TestArbiterIrreflexive(t *testing.T) {
	require := require.New(t)
	a := mustProof(t, ids.ID{1}, 0xAA, 0, 1_000_000)
	require.False(prefer(a, a))
}

// TestArbiterTrichotomy checks the law from §8: prefer(a,b) XOR prefer(b,a)
// holds exactly when a.id != b.id, across a spread of proofs that differ
// on every discriminator in turn.
func TestArbiterTrichotomy(t *testing.T) {
	require := require.New(t)

	proofs := []*Proof{
		mustProof(t, ids.ID{1}, 0xAA, 10, 1_000_000),
		mustProof(t, ids.ID{2}, 0xAA, 20, 1_000_000),
		mustProof(t, ids.ID{3}, 0xBB, 10, 2_000_000),
		mustProof(t, ids.ID{4}, 0xCC, 10, 1_000_000),
	}

	for i, a := range proofs {
		for j, b := range proofs {
			if i == j {
				require.False(prefer(a, b))
				continue
			}
			require.True(prefer(a, b) != prefer(b, a), "prefer must be antisymmetric for %d,%d", i, j)
		}
	}
}
