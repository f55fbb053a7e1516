package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swap_executor",
		Name:      "executions_total",
		Help:      "Route-step executions by terminal status.",
	}, []string{"status"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swap_executor",
		Name:      "submissions_total",
		Help:      "Transaction submission attempts by chain.",
	}, []string{"chain"})

	fundingTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swap_executor",
		Name:      "funding_transfers_total",
		Help:      "Funder top-up transfers by chain.",
	}, []string{"chain"})
)
