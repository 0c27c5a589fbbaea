/*
metrics.go - Prometheus counters for the sales path

The interesting operational signal is the consumption engine: how many
sales commit and how many bounce off insufficient stock. Everything
else is visible from the request log.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	salesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_sales_recorded_total",
		Help: "Sales committed by the consumption engine.",
	})

	salesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_sales_rejected_total",
		Help: "Sales rejected for insufficient stock.",
	})
)
