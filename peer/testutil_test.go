// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// acceptAllVerifier treats every proof as structurally valid, leaving all
// admission decisions to the UTXO view (the scenarios in §8 never need to
// exercise the Invalid result through the verifier).
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(UTXOView, *Proof) (VerifyResult, error) {
	return VerifyOK, nil
}

// fakeUTXOView is a simple in-memory UTXOView for tests, grounded on the
// spec's description of the view as a bounded, caller-owned snapshot.
type fakeUTXOView struct {
	coins map[Outpoint]Coin
	tip   int32
	medtp int64
}

func newFakeUTXOView(tip int32) *fakeUTXOView {
	return &fakeUTXOView{coins: make(map[Outpoint]Coin), tip: tip}
}

func (v *fakeUTXOView) GetCoin(o Outpoint) (Coin, bool) {
	c, ok := v.coins[o]
	return c, ok
}

func (v *fakeUTXOView) TipHeight() int32      { return v.tip }
func (v *fakeUTXOView) MedianTimePast() int64 { return v.medtp }

func (v *fakeUTXOView) addCoin(o Outpoint, amount uint64, height int32) {
	v.coins[o] = Coin{Amount: amount, Height: height}
}

// testOutpoint returns a distinct outpoint for index i.
func testOutpoint(i byte) Outpoint {
	return Outpoint{TxID: ids.ID{i}, Index: 0}
}

// unixZero is the epoch start, the base instant for mock clocks.
var unixZero = time.Unix(0, 0)

// mockClock is a settable time source for deterministic tests.
type mockClock struct {
	now time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{now: start}
}

func (c *mockClock) Time() time.Time { return c.now }
func (c *mockClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestManager(cfg Config, opts ...Option) *PeerManager {
	pm, err := NewPeerManager(cfg, acceptAllVerifier{}, log.NewNoOpLogger(), prometheus.NewRegistry(), opts...)
	if err != nil {
		panic(err)
	}
	return pm
}
