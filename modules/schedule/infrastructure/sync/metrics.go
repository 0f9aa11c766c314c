package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var persistsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rosterboard",
	Subsystem: "sync",
	Name:      "persists_total",
	Help:      "Backend persist attempts by operation and outcome.",
}, []string{"op", "outcome"})
