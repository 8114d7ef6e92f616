// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level collectors so flows and handlers can record without a
// reference to the Server.
var (
	flowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystead_flow_outcomes_total",
			Help: "Total number of authentication flow runs by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	flowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keystead_flow_duration_seconds",
			Help:    "Duration of authentication flows, dominated by password hashing",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"flow"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystead_http_requests_total",
			Help: "Total number of HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)

	sessionsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keystead_sessions_purged_total",
			Help: "Total number of expired sessions removed by the sweeper",
		},
	)
)

// RecordFlow records the outcome and duration of one flow run.
func RecordFlow(flow, outcome string, d time.Duration) {
	flowOutcomes.WithLabelValues(flow, outcome).Inc()
	flowDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordSessionsPurged adds n to the purged sessions counter.
func RecordSessionsPurged(n int64) {
	sessionsPurged.Add(float64(n))
}

// RegisterMetrics registers the keystead collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(flowOutcomes, flowDuration, httpRequests, sessionsPurged)
}
