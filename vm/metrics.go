// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess  = "success"
	resultReverted = "reverted"
)

type metrics struct {
	transactions *prometheus.CounterVec
	calls        *prometheus.CounterVec
	logs         prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "vm",
				Name:      "transactions_total",
				Help:      "Top-level transactions by result.",
			},
			[]string{"result"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "vm",
				Name:      "calls_total",
				Help:      "Call frames by kind and result.",
			},
			[]string{"kind", "result"},
		),
		logs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "vm",
				Name:      "logs_total",
				Help:      "Event logs emitted by successful transactions.",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.transactions, m.calls, m.logs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
