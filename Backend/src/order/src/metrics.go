package main

import "github.com/prometheus/client_golang/prometheus"

var purchaseOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "order_purchase_total",
	Help: "Purchase attempts by outcome (ok, upstream_error, catalog_unreachable, db_insert_failed, bad_request).",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(purchaseOutcomes)
}
