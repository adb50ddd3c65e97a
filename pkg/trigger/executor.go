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

// Clock is the set of time sources evaluate needs: the current input watermark, processing
// time, and synchronized processing time (§6's Clock and InputWatermarkSource).
type Clock struct {
	InputWatermark             time.Time
	ProcessingTime             time.Time
	SynchronizedProcessingTime time.Time
}

// Executor drives should_fire/on_fire evaluation for one compiled trigger tree, shared across
// every (key, window) instance configured with it; all per-instance data lives in the State and
// PaneStats the caller passes in (§4.2.1).
type Executor struct {
	Compiled *Compiled
}

// NewExecutor compiles root and returns an Executor for it.
func NewExecutor(root *Trigger) (*Executor, error) {
	c, err := Compile(root)
	if err != nil {
		return nil, err
	}
	return &Executor{Compiled: c}, nil
}

// OnElement records one element's arrival into the current pane and, for Mock nodes, consumes
// the next scripted decision. It must be called once per element, before ShouldFire/Fire are
// evaluated for that element (§4.2.1: "delivered in depth-first order to unfinished leaves").
func (e *Executor) OnElement(state *State, pane *PaneStats, eventTime, processingTime, synchronizedTime time.Time) {
	pane.Observe(eventTime, processingTime, synchronizedTime)
	advanceMocks(e.Compiled.Root, state)
}

func advanceMocks(t *Trigger, s *State) {
	if t.Kind == Mock {
		if len(t.script) == 0 {
			return
		}
		cur := s.ScriptCursor(t.index)
		if cur >= len(t.script) {
			cur = len(t.script) - 1
		}
		s.mockDecision[t.index] = t.script[cur]
		if s.ScriptCursor(t.index) < len(t.script)-1 {
			s.AdvanceScriptCursor(t.index)
		}
		return
	}
	switch t.Kind {
	case Repeatedly:
		advanceMocks(t.Sub, s)
		if t.Final != nil {
			advanceMocks(t.Final, s)
		}
	case AfterEach, AfterFirst, AfterAll:
		for _, c := range t.Children {
			advanceMocks(c, s)
		}
	}
}

// ShouldFire reports whether the root trigger's condition is currently met, without mutating
// any finished bit, cursor, or other committed state (§4.2.1: the executor asks should_fire
// before deciding whether to run on_fire at all).
func (e *Executor) ShouldFire(state *State, pane *PaneStats, clk Clock, windowEnd time.Time) bool {
	return evaluate(e.Compiled.Root, state, pane, clk, windowEnd, false).Fires()
}

// Fire runs the on_fire pass: it re-evaluates the tree, this time committing finished bits,
// AfterEach cursor advances, and Repeatedly subtree resets. It returns whether the root actually
// fired and whether the root is now finished (in which case the caller transitions the window to
// CLOSED, §4.7). Callers must only invoke Fire when a prior ShouldFire returned true.
func (e *Executor) Fire(state *State, pane *PaneStats, clk Clock, windowEnd time.Time) (fired, rootFinished bool) {
	d := evaluate(e.Compiled.Root, state, pane, clk, windowEnd, true)
	return d.Fires(), d.Finishes()
}

// evaluate computes the Decision for node t given the current state, pane statistics, and
// clock. When commit is false it is a pure read: finished bits, cursors, and subtree resets are
// left untouched, though idempotent value-cell memoization (the first-observed target instant
// of a delay-based trigger) may still be written, since recomputing it would yield the same
// value. When commit is true, firing decisions are applied to state.
func evaluate(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	switch t.Kind {
	case Repeatedly:
		return evaluateRepeatedly(t, s, pane, clk, windowEnd, commit)
	case AfterEach:
		return evaluateAfterEach(t, s, pane, clk, windowEnd, commit)
	case AfterFirst:
		return evaluateAfterFirst(t, s, pane, clk, windowEnd, commit)
	case AfterAll:
		return evaluateAfterAll(t, s, pane, clk, windowEnd, commit)
	default:
		return evaluateLeaf(t, s, pane, clk, windowEnd, commit)
	}
}

func evaluateLeaf(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	idx := t.index
	if s.IsFinished(idx) {
		// §7: a OnceTrigger observed to fire twice is coerced into a no-op.
		return Continue
	}

	var decision Decision
	switch t.Kind {
	case AfterWatermarkEndOfWindow, Default:
		if !clk.InputWatermark.Before(windowEnd) {
			decision = FireAndFinish
		} else {
			decision = Continue
		}
	case AfterWatermarkFirstElement:
		if pane.IsEmpty() {
			decision = Continue
			break
		}
		target := s.TargetInstant(idx)
		if !s.HasTargetInstant(idx) {
			target = pane.FirstEventTime.Add(t.Delay)
			// Memoizing the target instant is idempotent regardless of commit: it is a
			// deterministic function of the pane's first element, not of the firing decision
			// itself.
			s.SetTargetInstant(idx, target)
		}
		if !clk.InputWatermark.Before(target) {
			decision = FireAndFinish
		} else {
			decision = Continue
		}
	case AfterProcessingTime:
		if pane.IsEmpty() {
			decision = Continue
			break
		}
		target := s.TargetInstant(idx)
		if !s.HasTargetInstant(idx) {
			target = pane.FirstProcessingTime.Add(t.Delay)
			s.SetTargetInstant(idx, target)
		}
		if !clk.ProcessingTime.Before(target) {
			decision = FireAndFinish
		} else {
			decision = Continue
		}
	case AfterSynchronizedProcessingTime:
		if pane.IsEmpty() {
			decision = Continue
			break
		}
		if !clk.SynchronizedProcessingTime.Before(pane.FirstSynchronizedTime) {
			decision = FireAndFinish
		} else {
			decision = Continue
		}
	case AfterPane:
		if pane.Count >= t.Count {
			decision = FireAndFinish
		} else {
			decision = Continue
		}
	case Mock:
		decision = s.mockDecision[idx]
	default:
		decision = Continue
	}

	if commit && decision.Finishes() {
		s.SetFinished(idx)
	}
	return decision
}

func evaluateRepeatedly(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	idx := t.index
	if s.IsFinished(idx) {
		return Continue
	}

	subDecision := evaluate(t.Sub, s, pane, clk, windowEnd, commit)
	outcome := Continue
	if subDecision.Fires() {
		outcome = Fire
	}

	if t.Final != nil {
		finalDecision := evaluate(t.Final, s, pane, clk, windowEnd, commit)
		if finalDecision.Fires() {
			outcome = FireAndFinish
		}
	}

	if commit {
		if outcome == Fire {
			// Fired via Sub, not Final: reset Sub's subtree so it can fire again (§8
			// scenario 4, "Repeatedly resets T").
			s.ClearSubtree(subtreeIndices(t.Sub))
		}
		if outcome.Finishes() {
			s.SetFinished(idx)
		}
	}
	return outcome
}

func evaluateAfterEach(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	idx := t.index
	if s.IsFinished(idx) {
		return Continue
	}

	cur := s.cursor[idx]
	if cur >= len(t.Children) {
		return Continue
	}

	childDecision := evaluate(t.Children[cur], s, pane, clk, windowEnd, commit)
	nextCur := cur
	finishing := false
	if childDecision.Finishes() {
		nextCur = cur + 1
		finishing = nextCur >= len(t.Children)
	}

	outcome := Continue
	if childDecision.Fires() {
		if finishing {
			outcome = FireAndFinish
		} else {
			outcome = Fire
		}
	}

	if commit {
		s.cursor[idx] = nextCur
		if outcome.Finishes() {
			s.SetFinished(idx)
		}
	}
	return outcome
}

func evaluateAfterFirst(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	idx := t.index
	if s.IsFinished(idx) {
		return Continue
	}

	fired := false
	for _, child := range t.Children {
		d := evaluate(child, s, pane, clk, windowEnd, commit)
		if d.Fires() {
			fired = true
		}
	}

	outcome := Continue
	if fired {
		outcome = FireAndFinish
	}
	if commit && outcome.Finishes() {
		s.SetFinished(idx)
	}
	return outcome
}

func evaluateAfterAll(t *Trigger, s *State, pane *PaneStats, clk Clock, windowEnd time.Time, commit bool) Decision {
	idx := t.index
	if s.IsFinished(idx) {
		return Continue
	}

	allFinished := true
	for _, child := range t.Children {
		d := evaluate(child, s, pane, clk, windowEnd, commit)
		childFinished := s.IsFinished(child.index) || d.Finishes()
		if !childFinished {
			allFinished = false
		}
	}

	outcome := Continue
	if allFinished {
		outcome = FireAndFinish
	}
	if commit && outcome.Finishes() {
		s.SetFinished(idx)
	}
	return outcome
}

// OnMerge folds the trigger states of the windows being merged into a single state for the
// result window (§4.2.1). anySourceClosed must be true iff any source window had already
// transitioned to CLOSED; merging never revives a closed window, so in that case the result is
// reported fully finished and the caller closes it outright rather than inspecting per-node
// outcomes.
func (e *Executor) OnMerge(sources []*State, anySourceClosed bool) (merged *State, resultClosed bool) {
	merged = NewState(e.Compiled.NodeCount())
	if anySourceClosed {
		for i := range merged.finished {
			merged.finished[i] = true
		}
		return merged, true
	}
	mergeNode(e.Compiled.Root, sources, merged)
	return merged, false
}

func mergeNode(t *Trigger, sources []*State, merged *State) {
	switch t.Kind {
	case Repeatedly:
		mergeNode(t.Sub, sources, merged)
		if t.Final != nil {
			mergeNode(t.Final, sources, merged)
		}
	case AfterEach, AfterFirst, AfterAll:
		for _, c := range t.Children {
			mergeNode(c, sources, merged)
		}
	}

	idx := t.index
	allFinished := len(sources) > 0
	for _, s := range sources {
		if !s.IsFinished(idx) {
			allFinished = false
			break
		}
	}
	// A OnceTrigger finished identically in every source window carries its finished bit
	// into the merge result; otherwise children may re-evaluate against the merged pane
	// (§4.2.1).
	if allFinished {
		merged.SetFinished(idx)
	}

	for _, s := range sources {
		if !s.HasTargetInstant(idx) {
			continue
		}
		if !merged.HasTargetInstant(idx) || s.TargetInstant(idx).Before(merged.TargetInstant(idx)) {
			merged.SetTargetInstant(idx, s.TargetInstant(idx))
		}
	}
}

// MergePaneStats combines the pane statistics of the windows being merged: counts sum, and each
// time-domain's first-element instant is the earliest non-zero instant observed across sources,
// mirroring the window bound policy of taking the minimum start (§4.1, §4.3).
func MergePaneStats(sources []*PaneStats) *PaneStats {
	merged := &PaneStats{}
	for _, p := range sources {
		merged.Count += p.Count
		merged.FirstEventTime = earliestNonZero(merged.FirstEventTime, p.FirstEventTime)
		merged.FirstProcessingTime = earliestNonZero(merged.FirstProcessingTime, p.FirstProcessingTime)
		merged.FirstSynchronizedTime = earliestNonZero(merged.FirstSynchronizedTime, p.FirstSynchronizedTime)
	}
	return merged
}

func earliestNonZero(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if b.Before(a) {
		return b
	}
	return a
}

// subtreeIndices returns the DFS index of t and every descendant, used to reset a Repeatedly
// subtree after a non-final fire.
func subtreeIndices(t *Trigger) []int {
	idxs := []int{t.index}
	switch t.Kind {
	case Repeatedly:
		idxs = append(idxs, subtreeIndices(t.Sub)...)
		if t.Final != nil {
			idxs = append(idxs, subtreeIndices(t.Final)...)
		}
	case AfterEach, AfterFirst, AfterAll:
		for _, c := range t.Children {
			idxs = append(idxs, subtreeIndices(c)...)
		}
	}
	return idxs
}
