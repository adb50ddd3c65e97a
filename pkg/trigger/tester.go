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

package trigger

import "time"

// Fired records one pane emitted by a Tester-driven run.
type Fired struct {
	WindowEnd time.Time
	Count     uint64
}

// Tester drives a single compiled trigger tree against one simulated (key, window) instance,
// the public scaffolding the end-to-end scenarios in §8 are written against. It owns the
// window's State, PaneStats, and clock, and exposes the primitives named in the design notes:
// process_element, advance_watermark, advance_processing_time, fire_timer, merge_windows,
// is_marked_finished, and inspection of whether keyed state is still in use.
type Tester struct {
	Executor  *Executor
	State     *State
	Pane      *PaneStats
	Clock     Clock
	WindowEnd time.Time
	closed    bool
	fired     []Fired
}

// NewTester returns a Tester for root over a window ending at windowEnd. It panics if root
// fails to compile; a bad trigger tree is a programming error caught at construction (§7).
func NewTester(root *Trigger, windowEnd time.Time) *Tester {
	exec, err := NewExecutor(root)
	if err != nil {
		panic(err)
	}
	return &Tester{
		Executor:  exec,
		State:     NewState(exec.Compiled.NodeCount()),
		Pane:      &PaneStats{},
		WindowEnd: windowEnd,
	}
}

// ProcessElement injects one element's event, processing, and synchronized times, then runs the
// should_fire/on_fire pass. It returns true if a pane fired.
func (r *Tester) ProcessElement(eventTime, processingTime, synchronizedTime time.Time) bool {
	if r.closed {
		return false
	}
	r.Executor.OnElement(r.State, r.Pane, eventTime, processingTime, synchronizedTime)
	return r.evaluateAndFire()
}

// AdvanceWatermark moves the input watermark forward and runs should_fire/on_fire.
func (r *Tester) AdvanceWatermark(t time.Time) bool {
	if r.closed {
		return false
	}
	r.Clock.InputWatermark = t
	return r.evaluateAndFire()
}

// AdvanceProcessingTime moves processing time (and, by the same tick, synchronized processing
// time, absent a distinct synchronized clock) forward and runs should_fire/on_fire.
func (r *Tester) AdvanceProcessingTime(t time.Time) bool {
	if r.closed {
		return false
	}
	r.Clock.ProcessingTime = t
	r.Clock.SynchronizedProcessingTime = t
	return r.evaluateAndFire()
}

// FireTimer simulates a timer callback by re-running should_fire/on_fire at the current clock
// values, the hook a TimerService dispatch ultimately exercises.
func (r *Tester) FireTimer() bool {
	if r.closed {
		return false
	}
	return r.evaluateAndFire()
}

func (r *Tester) evaluateAndFire() bool {
	if !r.Executor.ShouldFire(r.State, r.Pane, r.Clock, r.WindowEnd) {
		return false
	}
	fired, finished := r.Executor.Fire(r.State, r.Pane, r.Clock, r.WindowEnd)
	if fired {
		r.fired = append(r.fired, Fired{WindowEnd: r.WindowEnd, Count: r.Pane.Count})
		r.Pane.Reset()
	}
	if finished {
		r.closed = true
	}
	return fired
}

// MergeWindows merges the given sibling Testers' state and pane statistics into r, as if their
// windows had just been coalesced in the ActiveWindowSet (§4.2.1's on_merge). The merge is
// treated as touching a closed source if any sibling, including r, had already closed.
func (r *Tester) MergeWindows(siblings ...*Tester) {
	sources := make([]*State, 0, len(siblings)+1)
	panes := make([]*PaneStats, 0, len(siblings)+1)
	anyClosed := r.closed
	sources = append(sources, r.State)
	panes = append(panes, r.Pane)
	for _, s := range siblings {
		sources = append(sources, s.State)
		panes = append(panes, s.Pane)
		anyClosed = anyClosed || s.closed
	}

	merged, resultClosed := r.Executor.OnMerge(sources, anyClosed)
	r.State = merged
	r.Pane = MergePaneStats(panes)
	r.closed = resultClosed
}

// ExtractOutput returns every pane fired so far.
func (r *Tester) ExtractOutput() []Fired { return r.fired }

// IsMarkedFinished reports whether the root trigger (and therefore the window) is finished.
func (r *Tester) IsMarkedFinished() bool {
	return r.State.IsFinished(r.Executor.Compiled.Root.index)
}

// IsClosed reports whether the window has transitioned to CLOSED.
func (r *Tester) IsClosed() bool { return r.closed }

// KeyedStateInUse reports whether any per-node state cell still holds data: a non-empty pane, a
// set target instant, or a set finished bit. Used to confirm garbage collection actually
// reclaims a window's state after close (§4.7, §8: "no state cell indexed by w is readable").
func (r *Tester) KeyedStateInUse() bool {
	if !r.Pane.IsEmpty() {
		return true
	}
	for i := 0; i < r.Executor.Compiled.NodeCount(); i++ {
		if r.State.IsFinished(i) || r.State.HasTargetInstant(i) {
			return true
		}
	}
	return false
}
