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

// Package timer implements the §4.4 per-key timer service: idempotent set/delete keyed by
// (namespace, domain), firing in nondecreasing timestamp order within a domain and key.
package timer

import (
	"time"

	"github.com/flowcore/windower/pkg/state"
)

// Domain is the clock a timer is scheduled against.
type Domain int

const (
	EventTime Domain = iota
	ProcessingTime
	SynchronizedProcessingTime
)

func (d Domain) String() string {
	switch d {
	case EventTime:
		return "EVENT_TIME"
	case ProcessingTime:
		return "PROCESSING_TIME"
	case SynchronizedProcessingTime:
		return "SYNCHRONIZED_PROCESSING_TIME"
	default:
		return "UNKNOWN_DOMAIN"
	}
}

// Tag is the dedup key a set_timer call replaces by: identical (namespace, domain) pairs share
// one live timer, the most recent set_timer call winning.
type Tag struct {
	Namespace state.Namespace
	Domain    Domain
}

// Fired describes one timer that has crossed its domain's clock and been removed from the
// service. Callers receive the batch already popped, so re-arming the same (namespace, domain)
// from inside the firing callback never races against the timer being fired.
type Fired struct {
	Tag       Tag
	Timestamp time.Time
}
