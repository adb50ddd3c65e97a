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

package window

import "time"

// Strategy names the window shape, mirroring the enumerated configuration in spec §6.
type Strategy int

const (
	Fixed Strategy = iota
	Sliding
	Session
	Global
)

func (s Strategy) String() string {
	switch s {
	case Fixed:
		return "Fixed"
	case Sliding:
		return "Sliding"
	case Session:
		return "Session"
	case Global:
		return "Global"
	default:
		return "Unknown"
	}
}

// WindowFn assigns elements to windows and, for merging shapes, proposes merges over the
// active set (§4.1). Assign must be deterministic and side-effect-free; the core never retries
// or caches its result across calls.
type WindowFn interface {
	// Strategy reports which window shape this WindowFn implements.
	Strategy() Strategy
	// AssignWindows returns the set of windows ts is assigned to.
	AssignWindows(ts time.Time) []Window
	// IsMerging reports whether this WindowFn's active set ever needs merging.
	IsMerging() bool
	// SideInputWindow returns the deterministic projection of mainWindow used for foreign
	// windowed-state lookups (§4.1).
	SideInputWindow(mainWindow Window) Window
}

// fixedFn implements non-overlapping, aligned windows of a static Length.
type fixedFn struct{ Length time.Duration }

// NewFixed returns a Fixed WindowFn with the given length.
func NewFixed(length time.Duration) WindowFn { return fixedFn{Length: length} }

func (f fixedFn) Strategy() Strategy { return Fixed }

func (f fixedFn) AssignWindows(ts time.Time) []Window {
	start := ts.Truncate(f.Length)
	// time.Truncate rounds toward -Inf for times before the Unix epoch; since this module only
	// reasons about forward-moving event time that distinction never surfaces in practice.
	return []Window{New(start, start.Add(f.Length))}
}

func (f fixedFn) IsMerging() bool { return false }

func (f fixedFn) SideInputWindow(mainWindow Window) Window {
	return f.AssignWindows(mainWindow.MaxTimestamp())[0]
}

// slidingFn implements overlapping, non-merging windows of Length advancing every Period.
type slidingFn struct {
	Length time.Duration
	Period time.Duration
}

// NewSliding returns a Sliding WindowFn of the given length and period.
func NewSliding(length, period time.Duration) WindowFn {
	return slidingFn{Length: length, Period: period}
}

func (s slidingFn) Strategy() Strategy { return Sliding }

func (s slidingFn) AssignWindows(ts time.Time) []Window {
	// The first window boundary after ts, then walk forward by Period from that boundary minus
	// Length, collecting every window that covers ts.
	lastBoundary := ts.Truncate(s.Period).Add(s.Period)
	if lastBoundary.Before(ts) || lastBoundary.Equal(ts) {
		lastBoundary = lastBoundary.Add(s.Period)
	}
	var windows []Window
	for start := lastBoundary.Add(-s.Length); ; start = start.Add(s.Period) {
		w := New(start, start.Add(s.Length))
		if w.Start.After(ts) {
			break
		}
		if w.Contains(ts) {
			windows = append(windows, w)
		}
		if !w.Start.Before(lastBoundary) {
			break
		}
	}
	return windows
}

func (s slidingFn) IsMerging() bool { return false }

func (s slidingFn) SideInputWindow(mainWindow Window) Window {
	all := s.AssignWindows(mainWindow.MaxTimestamp())
	// The containing window of mainWindow.MaxTimestamp with the latest start is the
	// deterministic projection (§4.1): it is the one a consumer reading "as of" that timestamp
	// would see as most current.
	latest := all[0]
	for _, w := range all[1:] {
		if w.Start.After(latest.Start) {
			latest = w
		}
	}
	return latest
}

// sessionFn implements merging windows: each element opens a [ts, ts+Gap) window, which later
// merges with any other active window it overlaps or abuts.
type sessionFn struct{ Gap time.Duration }

// NewSessions returns a Sessions WindowFn with the given gap.
func NewSessions(gap time.Duration) WindowFn { return sessionFn{Gap: gap} }

func (s sessionFn) Strategy() Strategy { return Session }

func (s sessionFn) AssignWindows(ts time.Time) []Window {
	return []Window{New(ts, ts.Add(s.Gap))}
}

func (s sessionFn) IsMerging() bool { return true }

func (s sessionFn) SideInputWindow(Window) Window {
	// Sessions project onto the global window for foreign windowed-state lookups (§4.1).
	return New(MinInstant, MaxInstant)
}

// globalFn implements the single all-time window.
type globalFn struct{}

// NewGlobal returns the Global WindowFn.
func NewGlobal() WindowFn { return globalFn{} }

func (globalFn) Strategy() Strategy { return Global }

func (globalFn) AssignWindows(time.Time) []Window {
	return []Window{New(MinInstant, MaxInstant)}
}

func (globalFn) IsMerging() bool { return false }

func (globalFn) SideInputWindow(Window) Window {
	return New(MinInstant, MaxInstant)
}
