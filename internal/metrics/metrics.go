// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClockEvents counts signing attempts by result: recorded,
	// invalid_sequence, duplicate, invalid_input, error.
	ClockEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeclock_clock_events_total",
		Help: "Clock signing attempts by result.",
	}, []string{"result"})

	// AFDFiles counts generated regulatory files.
	AFDFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeclock_afd_files_total",
		Help: "AFD files generated, by layout and encoding.",
	}, []string{"layout", "encoding"})

	// ConsolidationRuns counts worker consolidation outcomes.
	ConsolidationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeclock_consolidation_runs_total",
		Help: "Daily consolidation runs by result.",
	}, []string{"result"})
)
