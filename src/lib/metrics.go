package lib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_checkouts_total",
			Help: "Checkout attempts by payment method and outcome",
		},
		[]string{"method", "status"},
	)

	InventoryRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_inventory_rejections_total",
			Help: "Inventory decrements rejected for lack of stock",
		},
		[]string{"ticket_type"},
	)

	Refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_refunds_total",
			Help: "Refund transitions by resulting status",
		},
		[]string{"status"},
	)

	Exchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_exchanges_total",
			Help: "Ticket exchanges by direction",
		},
		[]string{"direction"},
	)

	SweepRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_sweep_rows_total",
			Help: "Rows changed by periodic sweeps",
		},
		[]string{"sweep"},
	)
)
