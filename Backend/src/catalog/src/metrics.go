package main

import "github.com/prometheus/client_golang/prometheus"

var decrementOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_decrement_total",
	Help: "Decrement attempts by outcome (ok, not_found, out_of_stock, error).",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(decrementOutcomes)
}
