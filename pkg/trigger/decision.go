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

// Decision is the outcome of evaluating one node against the current state: the pure result a
// tagged-variant evaluate function returns in place of a thrown exception or a virtual-dispatch
// side effect (§9 design notes).
type Decision int

const (
	// Continue means the node has nothing to report yet.
	Continue Decision = iota
	// Fire means the node's condition is met but it is not finished: it may fire again later.
	Fire
	// FireAndFinish means the node's condition is met and it will never fire again.
	FireAndFinish
	// Finish means the node becomes finished without itself having fired, the outcome a merge
	// can produce per §4.2.1's on_merge policy.
	Finish
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "Continue"
	case Fire:
		return "Fire"
	case FireAndFinish:
		return "FireAndFinish"
	case Finish:
		return "Finish"
	default:
		return "Unknown"
	}
}

// Fires reports whether d represents an actual firing (as opposed to a silent finish).
func (d Decision) Fires() bool { return d == Fire || d == FireAndFinish }

// Finishes reports whether d sets the node's finished bit.
func (d Decision) Finishes() bool { return d == FireAndFinish || d == Finish }
