// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MemberCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "council_member_calls_total",
			Help: "Total number of completion calls per council member and outcome",
		},
		[]string{"member", "outcome"},
	)

	MemberCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "council_member_call_duration_seconds",
			Help:    "Duration of completion calls per council member",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"member"},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "council_search_requests_total",
			Help: "Total number of search augmentations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	SynthesisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "council_synthesis_total",
			Help: "Total number of consensus synthesis attempts by outcome",
		},
		[]string{"outcome"},
	)

	MembersOnline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "council_member_online",
			Help: "1 when the member's last health probe succeeded, 0 otherwise",
		},
		[]string{"member"},
	)
)
