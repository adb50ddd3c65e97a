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

// State is the per-(key, window) persisted trigger state: one finished bit per DFS-indexed
// node, plus the value cells a handful of leaf kinds need (§4.2 "Per-node persisted state").
// It is a plain in-process value; nothing writes it to a pkg/state backend, and the executor
// never talks to the backend directly.
type State struct {
	finished     []bool
	target       []time.Time
	scriptAt     []int
	mockDecision []Decision
	cursor       []int
}

// NewState allocates a State sized for a tree with n nodes.
func NewState(n int) *State {
	return &State{
		finished:     make([]bool, n),
		target:       make([]time.Time, n),
		scriptAt:     make([]int, n),
		mockDecision: make([]Decision, n),
		cursor:       make([]int, n),
	}
}

// IsFinished reports whether node idx's finished bit is set.
func (s *State) IsFinished(idx int) bool { return s.finished[idx] }

// SetFinished sets node idx's finished bit.
func (s *State) SetFinished(idx int) { s.finished[idx] = true }

// ClearFinished clears node idx's finished bit alone. Repeatedly resets its subtree with
// ClearSubtree instead.
func (s *State) ClearFinished(idx int) { s.finished[idx] = false }

// TargetInstant returns node idx's value cell, the zero time if unset.
func (s *State) TargetInstant(idx int) time.Time { return s.target[idx] }

// SetTargetInstant sets node idx's value cell.
func (s *State) SetTargetInstant(idx int, t time.Time) { s.target[idx] = t }

// HasTargetInstant reports whether node idx's value cell has been set.
func (s *State) HasTargetInstant(idx int) bool { return !s.target[idx].IsZero() }

// ClearSubtree clears the finished bit, value cell, Mock-script cursor and AfterEach cursor of
// every node index in idxs, the
// mechanism Repeatedly uses to let its wrapped trigger re-evaluate from scratch after it fires
// non-finally (§8 scenario 4: "Repeatedly resets T").
func (s *State) ClearSubtree(idxs []int) {
	for _, idx := range idxs {
		s.finished[idx] = false
		s.target[idx] = time.Time{}
		s.scriptAt[idx] = 0
		s.cursor[idx] = 0
	}
}

// ScriptCursor returns node idx's Mock-script cursor, the next index into its Trigger.script a
// Mock node should consume.
func (s *State) ScriptCursor(idx int) int { return s.scriptAt[idx] }

// AdvanceScriptCursor moves node idx's Mock-script cursor forward by one.
func (s *State) AdvanceScriptCursor(idx int) { s.scriptAt[idx]++ }

// PaneStats is the window-level bookkeeping every leaf trigger reads: the timestamp of the
// first element observed in the current (not-yet-fired) pane, in each time domain, and the
// element count. It resets to zero whenever the window's root trigger fires, in either
// accumulation mode (§6, §8 scenario 4).
type PaneStats struct {
	FirstEventTime             time.Time
	FirstProcessingTime        time.Time
	FirstSynchronizedTime      time.Time
	Count                      uint64
}

// Observe records one element's arrival into the current pane, capturing first-element times
// the first time it is called since the last Reset.
func (p *PaneStats) Observe(eventTime, processingTime, synchronizedTime time.Time) {
	if p.Count == 0 {
		p.FirstEventTime = eventTime
		p.FirstProcessingTime = processingTime
		p.FirstSynchronizedTime = synchronizedTime
	}
	p.Count++
}

// Reset clears the pane statistics, called once a pane has been emitted.
func (p *PaneStats) Reset() {
	*p = PaneStats{}
}

// IsEmpty reports whether no element has been observed in the current pane.
func (p *PaneStats) IsEmpty() bool { return p.Count == 0 }
