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
	"fmt"
	"time"

	"github.com/flowcore/windower/pkg/state"
	"github.com/flowcore/windower/pkg/trigger"
	"github.com/flowcore/windower/pkg/window"
)

// windowInstance is one (key, window)'s lifecycle record: ACTIVE -> FIRING -> ACTIVE | CLOSED
// (§4.7). The trigger State and PaneStats live here as plain in-process values, the same way
// trigger.Tester treats them; §4.3's Backend is reserved for the ReduceFn content and watermark
// hold a restart must actually be able to recover, since trigger.State's bitmap/slice fields have
// no byte encoding named anywhere in the spec.
type windowInstance struct {
	win    window.Window
	state  *trigger.State
	pane   *trigger.PaneStats
	closed bool

	onTimeFired bool
	index       int
	nsi         int // non_speculative_index; -1 until the first ON_TIME or LATE firing
	hasUnfired  bool
	bytesInPane int // accounted as each value is written, not when a firing later extracts it
}

func newWindowInstance(nodeCount int, win window.Window) *windowInstance {
	return &windowInstance{
		win:   win,
		state: trigger.NewState(nodeCount),
		pane:  &trigger.PaneStats{},
		nsi:   -1,
	}
}

// namespace derives the state.Namespace a window instance's ReduceFn content and watermark hold
// are stored under: one per (key, window bounds). A session merge that widens the bounds
// produces a new Namespace, and the sources' content is merged into it.
func namespace(key string, win window.Window) state.Namespace {
	return state.Namespace(fmt.Sprintf("%s@%d-%d", key, win.Start.UnixNano(), win.End.UnixNano()))
}

// timing classifies a firing given the current input watermark, following §4.5: EARLY before
// the watermark reaches window end; ON_TIME on the first firing at or after window end; LATE on
// every firing after that. Monotonic watermarks make "no prior LATE firings" automatic once
// onTimeFired is tracked, since ON_TIME can only ever be assigned once.
func (wi *windowInstance) timing(currentWatermark time.Time) Timing {
	if currentWatermark.Before(wi.win.End) {
		return Early
	}
	if !wi.onTimeFired {
		return OnTime
	}
	return Late
}

// recordFiring advances this instance's pane-index bookkeeping for a firing classified as t,
// returning the Info the caller should publish (IsLast left for the caller to fill in, since it
// depends on whether the trigger finished, which lifecycle.go does not itself evaluate).
func (wi *windowInstance) recordFiring(t Timing) Info {
	info := Info{
		Window:  wi.win,
		Timing:  t,
		Index:   wi.index,
		IsFirst: wi.index == 0,
	}
	if t != Early {
		wi.onTimeFired = true
		wi.nsi++
	}
	info.NonSpeculativeIndex = wi.nsi
	wi.index++
	wi.hasUnfired = false
	return info
}
