// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package peer

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var errFailedMetric = errors.New("failed to register peer manager metric")

// metrics mirrors the observers the teacher's poll.Set registers at
// construction (gauges for pool sizes, a counter for sweeps), so the
// numbers backing forEachPeer/getTotalPeersScore etc. are also visible to
// an operator's Prometheus scrape without re-deriving them.
type metrics struct {
	totalScore     prometheus.Gauge
	connectedScore prometheus.Gauge
	bound          prometheus.Gauge
	conflicting    prometheus.Gauge
	immature       prometheus.Gauge
	pendingNodes   prometheus.Gauge
	fragmentation  prometheus.Gauge
	danglingSweeps prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		totalScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_peers_total_score",
			Help: "Sum of the score of every Bound peer",
		}),
		connectedScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_peers_connected_score",
			Help: "Sum of the score of every Bound peer with at least one node",
		}),
		bound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_proofs_bound",
			Help: "Number of proofs in the Bound pool",
		}),
		conflicting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_proofs_conflicting",
			Help: "Number of proofs in the Conflicting pool",
		}),
		immature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_proofs_immature",
			Help: "Number of proofs in the Immature pool",
		}),
		pendingNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_nodes_pending",
			Help: "Number of nodes awaiting a not-yet-known proof",
		}),
		fragmentation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avalanche_slot_table_fragmentation",
			Help: "Tombstoned score currently occupying the slot table",
		}),
		danglingSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "avalanche_dangling_sweeps_total",
			Help: "Number of peers removed for having no attached nodes",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.totalScore, m.connectedScore, m.bound, m.conflicting,
		m.immature, m.pendingNodes, m.fragmentation, m.danglingSweeps,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedMetric, err)
		}
	}
	return m, nil
}
