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

package reduce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowcore/windower/pkg/shared/logging"
	"github.com/flowcore/windower/pkg/state"
	"github.com/flowcore/windower/pkg/timer"
	"github.com/flowcore/windower/pkg/trigger"
	"github.com/flowcore/windower/pkg/watermark"
	"github.com/flowcore/windower/pkg/window"
)

const holdAddress state.Address = "hold"

const CounterBytesRead = "bytes_read"

// Executor is the core's top-level orchestrator (§6): it assigns elements to windows, merges
// overlapping windows, evaluates the trigger tree, manages the watermark hold, and emits panes.
// One Executor instance handles every key; per-key isolation is by map entry, not by object,
// matching §5's "the state backend is shared across keys, the core requires only per-key
// serialisability" — an embedding runtime that shards keys across goroutines must still
// serialize calls for the same key itself, since Executor's own lock only protects its
// bookkeeping maps, not the single-threaded-per-key contract §5 describes.
type Executor struct {
	cfg         *Config
	log         *zap.SugaredLogger
	triggerExec *trigger.Executor
	nodeCount   int

	watermarkFirstNodes  []*trigger.Trigger
	processingFirstNodes []*trigger.Trigger
	synchronizedNodes    []*trigger.Trigger

	mu             sync.Mutex
	instances      map[string]map[window.Window]*windowInstance
	windows        *window.ActiveWindowSet
	timerOwner     map[string]map[timer.Tag]*windowInstance
	inputWatermark time.Time
}

// New constructs an Executor from opts. It fails if the trigger tree is malformed (§7) or if no
// OutputSink was supplied. The logger is pulled from ctx once, at construction, and held for the
// Executor's lifetime, the same way pbq's memory store captures its logger in NewMemoryStore
// rather than re-deriving it on every call.
func New(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg, err := configure(opts...)
	if err != nil {
		return nil, err
	}
	triggerExec, err := trigger.NewExecutor(cfg.Trigger)
	if err != nil {
		return nil, fmt.Errorf("reduce: bad trigger tree: %w", err)
	}

	e := &Executor{
		cfg:         cfg,
		log:         logging.FromContext(ctx),
		triggerExec: triggerExec,
		nodeCount:   triggerExec.Compiled.NodeCount(),
		instances:   make(map[string]map[window.Window]*windowInstance),
		windows:     window.NewActiveWindowSet(),
		timerOwner:  make(map[string]map[timer.Tag]*windowInstance),
	}
	for _, n := range triggerExec.Compiled.Nodes {
		switch n.Kind {
		case trigger.AfterWatermarkFirstElement:
			e.watermarkFirstNodes = append(e.watermarkFirstNodes, n)
		case trigger.AfterProcessingTime:
			e.processingFirstNodes = append(e.processingFirstNodes, n)
		case trigger.AfterSynchronizedProcessingTime:
			e.synchronizedNodes = append(e.synchronizedNodes, n)
		}
	}
	return e, nil
}

// ProcessElement assigns value to its window(s), stores it, and may fire panes synchronously
// (§6).
func (e *Executor) ProcessElement(key string, value []byte, ts time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.With("key", key)
	wm := e.inputWatermark
	for _, raw := range e.cfg.Window.WindowFn.AssignWindows(ts) {
		if wm.After(watermark.GCBound(raw, e.cfg.Window.AllowedLateness)) {
			log.Debugw("dropping element past allowed lateness", "window", raw.String(), "eventTime", ts)
			e.cfg.Counters.Increment(CounterDroppedLateness, 1)
			continue
		}

		inst := e.resolveInstance(key, raw)
		if inst.closed {
			log.Debugw("dropping element for closed window", "window", inst.win.String(), "eventTime", ts)
			e.cfg.Counters.Increment(CounterDroppedClosedWindow, 1)
			continue
		}

		ns := namespace(key, inst.win)
		contribution := watermark.ContributionFor(e.cfg.Window.OutputTime, inst.win, ts, wm, e.cfg.Window.AllowedLateness)
		e.cfg.Backend.WatermarkHold(key, ns, holdAddress).Add(contribution, watermark.Combine(e.cfg.Window.OutputTime))
		e.cfg.Fn.ProcessValue(e.cfg.Backend, key, ns, value)
		// Bytes are accounted as the group is written, not when a later firing iterates whatever
		// Extract happens to return: a sink that skips values must still be charged the full size.
		inst.bytesInPane += len(value)

		firstOfPane := inst.pane.Count == 0
		pt := e.cfg.Clock.ProcessingTime()
		st := e.cfg.Clock.SynchronizedProcessingTime()
		e.triggerExec.OnElement(inst.state, inst.pane, ts, pt, st)
		inst.hasUnfired = true

		e.refreshHoldContribution(key, inst)
		e.armWindowTimers(key, inst)
		if firstOfPane {
			e.armPaneTimers(key, inst, ts, pt, st)
		}
		e.evaluateAndFire(key, inst)
	}
}

// resolveInstance maps raw (the window AssignWindows just returned) onto its live
// windowInstance, folding any session-style merge the ActiveWindowSet performs along the way.
func (e *Executor) resolveInstance(key string, raw window.Window) *windowInstance {
	byWin := e.instancesFor(key)
	if !e.cfg.Window.WindowFn.IsMerging() {
		// Non-merging shapes never coalesce, so abutting fixed windows stay separate instances.
		if inst, ok := byWin[raw]; ok {
			return inst
		}
		inst := newWindowInstance(e.nodeCount, raw)
		byWin[raw] = inst
		return inst
	}
	mr := e.windows.Add(key, raw)

	if len(mr.Sources) <= 1 {
		if inst, ok := byWin[mr.Result]; ok {
			return inst
		}
		inst := newWindowInstance(e.nodeCount, mr.Result)
		byWin[mr.Result] = inst
		return inst
	}
	return e.mergeInstances(key, byWin, mr)
}

func (e *Executor) mergeInstances(key string, byWin map[window.Window]*windowInstance, mr window.MergeResult) *windowInstance {
	var states []*trigger.State
	var panes []*trigger.PaneStats
	var sourceNS []state.Namespace
	anyClosed, anyOnTime, anyUnfired := false, false, false
	maxIndex, maxNSI := 0, -1
	totalBytes := 0

	for _, src := range mr.Sources {
		inst, ok := byWin[src]
		if !ok {
			inst = newWindowInstance(e.nodeCount, src)
		} else {
			delete(byWin, src)
			e.deleteWindowTimers(key, namespace(key, src))
			e.cfg.Output.Remove(key, src)
		}
		states = append(states, inst.state)
		panes = append(panes, inst.pane)
		sourceNS = append(sourceNS, namespace(key, src))
		anyClosed = anyClosed || inst.closed
		anyOnTime = anyOnTime || inst.onTimeFired
		anyUnfired = anyUnfired || inst.hasUnfired
		totalBytes += inst.bytesInPane
		if inst.index > maxIndex {
			maxIndex = inst.index
		}
		if inst.nsi > maxNSI {
			maxNSI = inst.nsi
		}
	}

	mergedState, resultClosed := e.triggerExec.OnMerge(states, anyClosed)
	merged := &windowInstance{
		win:         mr.Result,
		state:       mergedState,
		pane:        trigger.MergePaneStats(panes),
		closed:      resultClosed,
		onTimeFired: anyOnTime,
		hasUnfired:  anyUnfired,
		index:       maxIndex,
		nsi:         maxNSI,
		bytesInPane: totalBytes,
	}

	resultNS := namespace(key, mr.Result)
	e.cfg.Fn.Merge(e.cfg.Backend, key, sourceNS, resultNS)
	e.cfg.Backend.MergeWatermarkHolds(key, sourceNS, resultNS, holdAddress, watermark.Merge(e.cfg.Window.OutputTime))

	byWin[mr.Result] = merged
	return merged
}

func (e *Executor) instancesFor(key string) map[window.Window]*windowInstance {
	m, ok := e.instances[key]
	if !ok {
		m = make(map[window.Window]*windowInstance)
		e.instances[key] = m
	}
	return m
}

// evaluateAndFire runs should_fire/on_fire for inst and handles the resulting lifecycle
// transition (§4.7).
func (e *Executor) evaluateAndFire(key string, inst *windowInstance) {
	if inst.closed {
		return
	}
	clk := trigger.Clock{
		InputWatermark:             e.inputWatermark,
		ProcessingTime:             e.cfg.Clock.ProcessingTime(),
		SynchronizedProcessingTime: e.cfg.Clock.SynchronizedProcessingTime(),
	}
	lateOverflow := e.inputWatermark.After(watermark.GCBound(inst.win, e.cfg.Window.AllowedLateness))

	var fired, rootFinished bool
	if e.triggerExec.ShouldFire(inst.state, inst.pane, clk, inst.win.End) {
		fired, rootFinished = e.triggerExec.Fire(inst.state, inst.pane, clk, inst.win.End)
	}

	if fired {
		e.emit(key, inst, rootFinished)
	}
	if rootFinished || lateOverflow {
		e.closeWindow(key, inst, lateOverflow)
	}
}

func (e *Executor) emit(key string, inst *windowInstance, willClose bool) {
	ns := namespace(key, inst.win)
	timing := inst.timing(e.inputWatermark)
	info := inst.recordFiring(timing)
	info.IsLast = willClose

	// §4.5 steps 1-2: read the hold before clearing it, and publish it (or w.max_timestamp
	// absent a hold) as the pane's output timestamp.
	hold, holdSet := e.cfg.Backend.WatermarkHold(key, ns, holdAddress).Read()
	outputTS := watermark.EmitTimestamp(hold, holdSet, inst.win)

	values := e.cfg.Fn.Extract(e.cfg.Backend, key, ns)
	e.cfg.Counters.Increment(CounterBytesRead, inst.bytesInPane)
	inst.bytesInPane = 0
	inst.pane.Reset()
	e.cfg.Sink.Emit(key, values, outputTS, info)
	e.countPane(timing)
	e.log.Debugw("fired pane", "key", key, "window", inst.win.String(),
		"timing", timing.String(), "index", info.Index, "isLast", info.IsLast, "outputTS", outputTS)

	if e.cfg.Window.Accumulation == window.DiscardingFiredPanes {
		e.cfg.Fn.Clear(e.cfg.Backend, key, ns)
	}
	// §4.5 step 3: clear the hold on emission; a later element before close accumulates a fresh
	// one for the next pane.
	e.cfg.Backend.WatermarkHold(key, ns, holdAddress).Clear()
	e.refreshHoldContribution(key, inst)
}

func (e *Executor) closeWindow(key string, inst *windowInstance, lateOverflow bool) {
	ns := namespace(key, inst.win)
	e.cfg.Fn.Clear(e.cfg.Backend, key, ns)
	e.cfg.Backend.WatermarkHold(key, ns, holdAddress).Clear()
	e.deleteWindowTimers(key, ns)
	e.cfg.Output.Remove(key, inst.win)
	e.windows.Remove(key, inst.win)
	inst.closed = true
	inst.hasUnfired = false
	e.log.Debugw("closed window", "key", key, "window", inst.win.String(), "lateOverflow", lateOverflow)
}

// refreshHoldContribution updates the cross-key output watermark tracker's entry for inst: the
// held instant, or the window's garbage-collection bound absent a hold (§4.5).
func (e *Executor) refreshHoldContribution(key string, inst *windowInstance) {
	ns := namespace(key, inst.win)
	hold, ok := e.cfg.Backend.WatermarkHold(key, ns, holdAddress).Read()
	if !ok {
		hold = watermark.GCBound(inst.win, e.cfg.Window.AllowedLateness)
	}
	e.cfg.Output.Update(key, inst.win, hold)
}

func (e *Executor) countPane(t Timing) {
	switch t {
	case Early:
		e.cfg.Counters.Increment(CounterPanesEarly, 1)
	case OnTime:
		e.cfg.Counters.Increment(CounterPanesOnTime, 1)
	case Late:
		e.cfg.Counters.Increment(CounterPanesLate, 1)
	}
}

func (e *Executor) setTimer(key string, tag timer.Tag, ts time.Time, inst *windowInstance) {
	e.cfg.Timers.Set(key, tag, ts)
	owners, ok := e.timerOwner[key]
	if !ok {
		owners = make(map[timer.Tag]*windowInstance)
		e.timerOwner[key] = owners
	}
	owners[tag] = inst
}

// armWindowTimers (re-)arms the two timers every window needs regardless of trigger: one at
// window end, driving AfterWatermark.past_end_of_window, and one at the garbage-collection
// bound, forcing a lateness-overflow close even if no further element or watermark advance
// happens to land exactly on window end.
func (e *Executor) armWindowTimers(key string, inst *windowInstance) {
	ns := namespace(key, inst.win)
	e.setTimer(key, tagFor(ns, purposeEndOfWindow, timer.EventTime), inst.win.End, inst)
	gc := watermark.GCBound(inst.win, e.cfg.Window.AllowedLateness)
	e.setTimer(key, tagFor(ns, purposeGC, timer.EventTime), gc, inst)
}

// armPaneTimers arms the timers a first-element-relative trigger node needs: one per
// AfterWatermark.past_first_element_in_pane and AfterProcessingTime.past_first_element_in_pane
// node in the compiled tree, anchored to this pane's first element, plus a wakeup for any
// AfterSynchronizedProcessingTime node so the next advance_processing_time call re-evaluates it.
func (e *Executor) armPaneTimers(key string, inst *windowInstance, ts, pt, st time.Time) {
	ns := namespace(key, inst.win)
	for _, n := range e.watermarkFirstNodes {
		e.setTimer(key, tagFor(ns, purposeNode(n.Index()), timer.EventTime), ts.Add(n.Delay), inst)
	}
	for _, n := range e.processingFirstNodes {
		e.setTimer(key, tagFor(ns, purposeNode(n.Index()), timer.ProcessingTime), pt.Add(n.Delay), inst)
	}
	if len(e.synchronizedNodes) > 0 {
		e.setTimer(key, tagFor(ns, purposeSync, timer.SynchronizedProcessingTime), st, inst)
	}
}

func (e *Executor) deleteWindowTimers(key string, ns state.Namespace) {
	e.cfg.Timers.Delete(key, tagFor(ns, purposeEndOfWindow, timer.EventTime))
	e.cfg.Timers.Delete(key, tagFor(ns, purposeGC, timer.EventTime))
	for _, n := range e.watermarkFirstNodes {
		e.cfg.Timers.Delete(key, tagFor(ns, purposeNode(n.Index()), timer.EventTime))
	}
	for _, n := range e.processingFirstNodes {
		e.cfg.Timers.Delete(key, tagFor(ns, purposeNode(n.Index()), timer.ProcessingTime))
	}
	if len(e.synchronizedNodes) > 0 {
		e.cfg.Timers.Delete(key, tagFor(ns, purposeSync, timer.SynchronizedProcessingTime))
	}
}

// AdvanceInputWatermark fires due EVENT_TIME timers across every key (§6).
func (e *Executor) AdvanceInputWatermark(newTime time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if newTime.After(e.inputWatermark) {
		e.inputWatermark = newTime
	}
	e.log.Debugw("advancing input watermark", "newTime", newTime)
	for _, key := range e.cfg.Timers.Keys() {
		for _, f := range e.cfg.Timers.AdvanceWatermark(key, newTime) {
			e.dispatchTimer(key, f.Tag)
		}
	}
}

// AdvanceProcessingTime fires due PROCESSING_TIME and SYNCHRONIZED_PROCESSING_TIME timers across
// every key (§6).
func (e *Executor) AdvanceProcessingTime(newTime, upstreamSynchronizedTime time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, key := range e.cfg.Timers.Keys() {
		for _, f := range e.cfg.Timers.AdvanceProcessingTime(key, newTime, upstreamSynchronizedTime) {
			e.dispatchTimer(key, f.Tag)
		}
	}
}

func (e *Executor) dispatchTimer(key string, tag timer.Tag) {
	inst, ok := e.timerOwner[key][tag]
	if !ok || inst.closed {
		return
	}
	e.evaluateAndFire(key, inst)
}

// Persist flushes pending state writes for key (§6), called at batch boundaries and
// checkpointing.
func (e *Executor) Persist(key string) error {
	if err := e.cfg.Backend.Persist(key); err != nil {
		e.log.Errorw("persist failed", "key", key, "error", err)
		return err
	}
	return nil
}
