// Copyright (c) 2012-2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace used for Prometheus metrics.
const MetricNamespace = "devserve"
const MetricSubsystem = "http"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "requests_total",
			Help:      "The number of requests handled, by response status code.",
		},
		[]string{"code"},
	)
	responseBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "response_bytes_total",
			Help:      "The number of response body bytes written to clients.",
		},
	)
)

func statusLabel(code int) string {
	return strconv.Itoa(code)
}
