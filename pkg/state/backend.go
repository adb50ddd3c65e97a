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

// Package state implements the per-key state backend of §4.3: a namespaced key-value store
// offering value, bag, and watermark-hold cells. A merge makes the union of the source
// namespaces visible under the result namespace at once; only the clearing of the source
// namespaces is deferred to the next persist.
//
// Every cell in this package stores opaque bytes; the typed accumulator semantics a
// CombiningCell needs (create_accumulator/add_input/merge_accumulators/extract_output) are
// layered on top of a ValueCell by pkg/reduce, which alone knows the accumulator's Go type.
package state

import "time"

// Namespace scopes a state cell to one trigger node, one ReduceFn slot, or one watermark hold
// within a window instance; it is the caller's responsibility to derive a Namespace that is
// unique per (window, purpose), typically from a partition.ID plus a node index or cell name.
type Namespace string

// Address further scopes a cell within a Namespace. Most callers use a single fixed Address per
// Namespace (there is exactly one bag, one watermark hold, one trigger-node value cell per
// window); Address exists so a single Namespace can host more than one addressable cell when
// that is convenient, e.g. one value cell per trigger-tree node under a shared window namespace.
type Address string

// ValueCell holds at most one value.
type ValueCell interface {
	// Read returns the stored value and true, or nil and false if unset.
	Read() ([]byte, bool)
	// Write stores v, replacing any previous value.
	Write(v []byte)
	// Clear removes the stored value.
	Clear()
}

// BagCell holds an unordered multiset of values.
type BagCell interface {
	// Append adds v to the bag.
	Append(v []byte)
	// ReadAll returns every value in the bag, in no particular order.
	ReadAll() [][]byte
	// Clear empties the bag.
	Clear()
}

// WatermarkHoldCell holds at most one Instant, folded across contributions by a caller-supplied
// combine function (typically an OutputTimeFn.combine per §4.5).
type WatermarkHoldCell interface {
	// Add folds t into the held instant via combine(existing, t); if no instant is held yet,
	// t becomes the held instant outright.
	Add(t time.Time, combine func(existing, incoming time.Time) time.Time)
	// Read returns the held instant and true, or the zero time and false if unset.
	Read() (time.Time, bool)
	// Clear removes the held instant.
	Clear()
}

// Backend is the per-key state store the embedding runtime supplies (§6's StateBackend, §4.3's
// operations). All methods are scoped to one key; the backend need not serialize calls across
// different keys against each other, only within a key (§5).
type Backend interface {
	// Value returns the ValueCell at (key, ns, addr), creating it empty on first access.
	Value(key string, ns Namespace, addr Address) ValueCell
	// Bag returns the BagCell at (key, ns, addr), creating it empty on first access.
	Bag(key string, ns Namespace, addr Address) BagCell
	// WatermarkHold returns the WatermarkHoldCell at (key, ns, addr), creating it empty on
	// first access.
	WatermarkHold(key string, ns Namespace, addr Address) WatermarkHoldCell

	// MergeBags returns a BagCell at (key, result, addr) containing the union of every source
	// namespace's bag at addr. The union is visible immediately; the source namespaces are not
	// cleared until Persist is called for key (§4.3: "after persist, source namespaces are
	// empty for that address").
	MergeBags(key string, sources []Namespace, result Namespace, addr Address) BagCell
	// MergeWatermarkHolds returns a WatermarkHoldCell at (key, result, addr) folding every
	// source namespace's hold at addr together via combine. Source namespaces are cleared at
	// the next Persist, as with MergeBags.
	MergeWatermarkHolds(key string, sources []Namespace, result Namespace, addr Address, combine func(existing, incoming time.Time) time.Time) WatermarkHoldCell

	// Persist atomically flushes pending writes for key and clears any source namespace that
	// a merge folded into a result namespace since the last Persist.
	Persist(key string) error
}
