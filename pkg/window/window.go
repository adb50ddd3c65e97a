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

// Package window implements the data model and assignment/merging logic of §3 and §4.1: a
// Window is a half-open event-time interval, a WindowFn assigns elements to windows, and an
// ActiveWindowSet tracks the windows currently alive for one key, coalescing overlapping
// windows for merging (session) strategies.
package window

import "time"

// tick is the smallest representable gap between two Instants, used to compute a window's
// inclusive MaxTimestamp from its exclusive End.
const tick = time.Nanosecond

// MinInstant and MaxInstant bound the representable range of event time. EndOfGlobalWindow is
// the sentinel end time used by the Global window strategy (§3: "designated MIN, MAX, and
// END_OF_GLOBAL_WINDOW sentinel").
var (
	MinInstant        = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxInstant        = time.Date(294247, 1, 1, 0, 0, 0, 0, time.UTC)
	EndOfGlobalWindow = MaxInstant.Add(-tick)
)

// Window is a half-open event-time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// New returns the window [start, end).
func New(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// MaxTimestamp returns End - 1 tick, the inclusive upper bound of the window (§3).
func (w Window) MaxTimestamp() time.Time {
	return w.End.Add(-tick)
}

// Contains reports whether ts falls in [Start, End). Half-open: an element with ts == End
// belongs to the next window, never this one (§8 boundary behaviour).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Overlaps reports whether w and o share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Equal reports whether w and o have the same bounds.
func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// Union returns the minimal window covering both w and o.
func (w Window) Union(o Window) Window {
	start, end := w.Start, w.End
	if o.Start.Before(start) {
		start = o.Start
	}
	if o.End.After(end) {
		end = o.End
	}
	return Window{Start: start, End: end}
}

func (w Window) String() string {
	return "[" + w.Start.Format(time.RFC3339Nano) + ", " + w.End.Format(time.RFC3339Nano) + ")"
}
