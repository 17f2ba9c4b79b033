// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics contains the prometheus collectors of an analysis run. Collectors are registered on a private
// registry so that several analyses can run in the same process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	BackendLabel = "backend"
	OutcomeLabel = "outcome"

	Succeeded = "succeeded"
	NoResult  = "no_result"
	Failed    = "failed"
)

// Metrics holds the collectors of one analysis. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	solverCalls    *prometheus.CounterVec
	solverDuration *prometheus.HistogramVec
	summaryVisits  prometheus.Counter
	summaryChanges prometheus.Counter
}

// New returns metrics registered on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		solverCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qif_solver_calls_total",
				Help: "Number of min-cut computations, by backend and outcome",
			},
			[]string{BackendLabel, OutcomeLabel},
		),
		solverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qif_solver_duration_seconds",
				Help:    "Duration of min-cut computations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{BackendLabel},
		),
		summaryVisits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qif_summary_visits_total",
				Help: "Number of method summaries computed by the fixpoint iteration",
			},
		),
		summaryChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qif_summary_changes_total",
				Help: "Number of summary computations that changed the summary of their method",
			},
		),
	}
	m.registry.MustRegister(m.solverCalls, m.solverDuration, m.summaryVisits, m.summaryChanges)
	return m
}

// ObserveSolverCall records a min-cut computation
func (m *Metrics) ObserveSolverCall(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.solverCalls.WithLabelValues(backend, outcome).Inc()
	m.solverDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// SummaryVisit records the computation of a summary
func (m *Metrics) SummaryVisit(changed bool) {
	if m == nil {
		return
	}
	m.summaryVisits.Inc()
	if changed {
		m.summaryChanges.Inc()
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTo writes the metrics to a file in the prometheus text format
func (m *Metrics) WriteTo(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
