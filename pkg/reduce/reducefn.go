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

import "github.com/flowcore/windower/pkg/state"

// ReduceFn is the content-carrying state across elements and firings (§4.6). The executor never
// interprets a value's bytes itself; it only calls through this interface at the right moments
// in an element's or a pane's lifecycle.
type ReduceFn interface {
	// ProcessValue appends or accumulates value under (key, ns).
	ProcessValue(backend state.Backend, key string, ns state.Namespace, value []byte)
	// Merge folds every source namespace's content into result, for a window merge (§4.2.1's
	// on_merge). Buffering leaves source namespaces for the backend's own Persist to reclaim;
	// Combining clears each source accumulator as soon as it has been folded in.
	Merge(backend state.Backend, key string, sources []state.Namespace, result state.Namespace)
	// Extract returns the values a firing at (key, ns) emits: one value for Buffering per
	// buffered element, or for Combining one extracted accumulator output (none when nothing
	// has been accumulated).
	Extract(backend state.Backend, key string, ns state.Namespace) [][]byte
	// Clear removes all content at (key, ns), called on discarding-mode firing and on close.
	Clear(backend state.Backend, key string, ns state.Namespace)
}

const dataAddress state.Address = "data"

// Buffering is the raw-grouping ReduceFn of §4.6: a bag cell of input values, emitted whole.
type Buffering struct{}

// NewBuffering returns a Buffering ReduceFn.
func NewBuffering() ReduceFn { return Buffering{} }

func (Buffering) ProcessValue(backend state.Backend, key string, ns state.Namespace, value []byte) {
	backend.Bag(key, ns, dataAddress).Append(value)
}

func (Buffering) Merge(backend state.Backend, key string, sources []state.Namespace, result state.Namespace) {
	backend.MergeBags(key, sources, result, dataAddress)
}

func (Buffering) Extract(backend state.Backend, key string, ns state.Namespace) [][]byte {
	return backend.Bag(key, ns, dataAddress).ReadAll()
}

func (Buffering) Clear(backend state.Backend, key string, ns state.Namespace) {
	backend.Bag(key, ns, dataAddress).Clear()
}

// CombineFn is the accumulator contract of §4.6's Combining variant. All four operations work
// over the caller's chosen accumulator encoding; the executor never inspects the bytes.
type CombineFn interface {
	CreateAccumulator() []byte
	AddInput(acc, value []byte) []byte
	MergeAccumulators(accs [][]byte) []byte
	ExtractOutput(acc []byte) []byte
}

// Combining is the accumulating ReduceFn of §4.6: a single accumulator cell folded by fn.
type Combining struct {
	Fn CombineFn
}

// NewCombining returns a Combining ReduceFn driven by fn.
func NewCombining(fn CombineFn) ReduceFn { return Combining{Fn: fn} }

func (c Combining) ProcessValue(backend state.Backend, key string, ns state.Namespace, value []byte) {
	cell := backend.Value(key, ns, dataAddress)
	acc, ok := cell.Read()
	if !ok {
		acc = c.Fn.CreateAccumulator()
	}
	cell.Write(c.Fn.AddInput(acc, value))
}

// Merge reads every source accumulator, folds them with MergeAccumulators, and writes the result
// under result's namespace. state.Backend exposes no merge view for plain ValueCells (§4.3's
// Backend interface deliberately stops at bag and watermark-hold merges, deferring typed
// accumulator semantics to this package), so Combining does its own read-merge-write and clears
// the source cells immediately rather than deferring the clear to the next Persist.
func (c Combining) Merge(backend state.Backend, key string, sources []state.Namespace, result state.Namespace) {
	var accs [][]byte
	for _, ns := range sources {
		if v, ok := backend.Value(key, ns, dataAddress).Read(); ok {
			accs = append(accs, v)
		}
	}
	resultCell := backend.Value(key, result, dataAddress)
	if len(accs) > 0 {
		resultCell.Write(c.Fn.MergeAccumulators(accs))
	}
	for _, ns := range sources {
		if ns != result {
			backend.Value(key, ns, dataAddress).Clear()
		}
	}
}

func (c Combining) Extract(backend state.Backend, key string, ns state.Namespace) [][]byte {
	acc, ok := backend.Value(key, ns, dataAddress).Read()
	if !ok {
		return nil
	}
	return [][]byte{c.Fn.ExtractOutput(acc)}
}

func (Combining) Clear(backend state.Backend, key string, ns state.Namespace) {
	backend.Value(key, ns, dataAddress).Clear()
}
