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

// Package watermark implements the §4.5 watermark-hold policy and the cross-key output
// watermark tracker: the per-window hold that pins pane output timestamps, and the min-over-all
// (key, window) tracker that bounds how far the pipeline's output watermark may advance.
package watermark

import (
	"time"

	"github.com/flowcore/windower/pkg/window"
)

// Combine returns the fold function f.combine for a window's watermark-hold cell: given the
// instant already held and a newly arriving contribution, it returns the instant the hold should
// become.
func Combine(f window.OutputTimeFn) func(existing, incoming time.Time) time.Time {
	switch f {
	case window.Latest:
		return func(existing, incoming time.Time) time.Time {
			if incoming.After(existing) {
				return incoming
			}
			return existing
		}
	case window.EndOfWindowTime:
		// Combine is the identity: the first contribution stored (w.End for an on-time element,
		// the GC bound for a late one) is kept, and later contributions are ignored.
		return func(existing, _ time.Time) time.Time { return existing }
	default: // Earliest
		return func(existing, incoming time.Time) time.Time {
			if incoming.Before(existing) {
				return incoming
			}
			return existing
		}
	}
}

// Merge returns the fold function used when window merging folds several source windows' holds
// into the merged result's hold (§4.3: "watermark-hold → OutputTimeFn.merge"). The spec names no
// distinct merge policy from the per-element combine, so this core uses the same one.
func Merge(f window.OutputTimeFn) func(existing, incoming time.Time) time.Time {
	return Combine(f)
}

// ContributionFor computes the Instant an element with event time ts contributes to w's
// watermark hold, per §4.5. A late element (ts before currentWatermark) contributes the window's
// garbage-collection bound instead of its own timestamp, so a straggler can never pin the output
// watermark behind the point at which the window will be garbage collected anyway.
func ContributionFor(f window.OutputTimeFn, w window.Window, ts, currentWatermark time.Time, allowedLateness time.Duration) time.Time {
	if ts.Before(currentWatermark) {
		return GCBound(w, allowedLateness)
	}
	if f == window.EndOfWindowTime {
		return w.End
	}
	return ts
}

// GCBound is the Instant beyond which w's state is garbage collected: its inclusive maximum
// timestamp plus the configured allowed lateness.
func GCBound(w window.Window, allowedLateness time.Duration) time.Time {
	return w.MaxTimestamp().Add(allowedLateness)
}

// EmitTimestamp computes the instant published as a pane's output timestamp at emission (§4.5
// step 1): the held instant, or w's inclusive maximum timestamp if the hold is absent or sits
// after it.
func EmitTimestamp(hold time.Time, holdSet bool, w window.Window) time.Time {
	max := w.MaxTimestamp()
	if !holdSet || hold.After(max) {
		return max
	}
	return hold
}
