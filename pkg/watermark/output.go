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

package watermark

import (
	"container/heap"
	"sync"
	"time"

	"github.com/flowcore/windower/pkg/window"
)

// contributor identifies one (key, window) pinning the output watermark at some value.
type contributor struct {
	key string
	win window.Window
}

// timeHeap is a min-heap of distinct contributed instants. Entries are never removed eagerly;
// Watermark lazily skips any instant whose contributor set has emptied out, the same idiom
// pkg/timer uses for canceled timers, since container/heap offers no O(log n) removal by value.
type timeHeap []time.Time

func (h timeHeap) Len() int            { return len(h) }
func (h timeHeap) Less(i, j int) bool  { return h[i].Before(h[j]) }
func (h timeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeHeap) Push(x any)         { *h = append(*h, x.(time.Time)) }
func (h *timeHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// OutputWatermark is the min-over-all-(key,window) tracker of §4.5: "the output watermark the
// system may advance to is the min over all keys and all windows of (hold || max_timestamp +
// allowed_lateness)". Callers register one contributed instant per live (key, window) via
// Update, and remove it via Remove once the window closes. The tracker is shared across keys, as
// the output watermark is a single pipeline-wide value (§5: "the state backend is shared across
// keys").
type OutputWatermark struct {
	mu           sync.Mutex
	heap         timeHeap
	contributors map[time.Time]map[contributor]struct{}
	current      map[contributor]time.Time
}

// New returns an OutputWatermark with no contributors, reporting window.MaxInstant (the "+∞ once
// inputs are drained" case) until the first Update.
func New() *OutputWatermark {
	return &OutputWatermark{
		contributors: make(map[time.Time]map[contributor]struct{}),
		current:      make(map[contributor]time.Time),
	}
}

// Update sets (or replaces) the instant key's win contributes to the tracked minimum.
func (w *OutputWatermark) Update(key string, win window.Window, value time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := contributor{key: key, win: win}
	if old, ok := w.current[c]; ok {
		w.removeLocked(old, c)
	}
	w.current[c] = value
	w.addLocked(value, c)
}

// Remove retracts key's win from the tracked minimum, typically on window close (§4.7).
func (w *OutputWatermark) Remove(key string, win window.Window) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := contributor{key: key, win: win}
	if old, ok := w.current[c]; ok {
		w.removeLocked(old, c)
		delete(w.current, c)
	}
}

func (w *OutputWatermark) addLocked(v time.Time, c contributor) {
	set, ok := w.contributors[v]
	if !ok {
		set = make(map[contributor]struct{})
		w.contributors[v] = set
		heap.Push(&w.heap, v)
	}
	set[c] = struct{}{}
}

func (w *OutputWatermark) removeLocked(v time.Time, c contributor) {
	set, ok := w.contributors[v]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(w.contributors, v)
	}
}

// Watermark returns the current minimum contributed instant, or window.MaxInstant if there are
// no live contributors.
func (w *OutputWatermark) Watermark() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minLocked()
}

func (w *OutputWatermark) minLocked() time.Time {
	for w.heap.Len() > 0 {
		top := w.heap[0]
		if _, ok := w.contributors[top]; !ok {
			heap.Pop(&w.heap)
			continue
		}
		return top
	}
	return window.MaxInstant
}

// Laggard reports one (key, window) currently pinning the output watermark at its minimum, for
// diagnostics. ok is false if there are no live contributors.
func (w *OutputWatermark) Laggard() (key string, win window.Window, value time.Time, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := w.minLocked()
	set, present := w.contributors[v]
	if !present || len(set) == 0 {
		return "", window.Window{}, time.Time{}, false
	}
	for c := range set {
		return c.key, c.win, v, true
	}
	return "", window.Window{}, time.Time{}, false
}
