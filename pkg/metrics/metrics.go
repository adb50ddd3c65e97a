/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics declares Prometheus counter vectors for the windowing core's counters (§6).
// It holds no implementation of the reduce package's Counters interface, and pkg/reduce does
// not increment these vectors; the embedding runtime supplies its own Counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVertex = "vertex"
	LabelReason = "reason"
)

var (
	// DroppedElementsTotal counts elements dropped by the trigger executor, partitioned by reason:
	// "closed_window" (§4.2.2 late element after close) or "lateness_overflow" (element later than
	// max_timestamp + allowed_lateness).
	DroppedElementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "windower",
		Name:      "dropped_elements_total",
		Help:      "Total number of elements dropped by the trigger executor",
	}, []string{LabelVertex, LabelReason})

	// PanesEmittedTotal counts panes emitted to the OutputSink, partitioned by timing.
	PanesEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "windower",
		Name:      "panes_emitted_total",
		Help:      "Total number of panes emitted",
	}, []string{LabelVertex, LabelReason})

	// BytesReadTotal counts bytes accounted for when a window's reduce buffer is opened for
	// reading, not per value iterated (§8 scenario 6).
	BytesReadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "windower",
		Name:      "bytes_read_total",
		Help:      "Total number of bytes accounted for group-open reads",
	}, []string{LabelVertex})

	// ContractViolationsTotal counts debug-assertable contract violations coerced into no-ops in
	// release builds (§7), such as a OnceTrigger observed firing twice.
	ContractViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "windower",
		Name:      "contract_violations_total",
		Help:      "Total number of contract violations coerced into no-ops",
	}, []string{LabelVertex, LabelReason})
)
