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

// Package reduce is the top-level orchestrator of §6: it wires pkg/window, pkg/trigger,
// pkg/state, pkg/timer, and pkg/watermark together behind the core's external entry points
// (process_element, advance_input_watermark, advance_processing_time, persist).
package reduce

import "github.com/flowcore/windower/pkg/window"

// Timing classifies when a pane fired relative to the input watermark crossing its window's end
// (§4.5).
type Timing int

const (
	Early Timing = iota
	OnTime
	Late
)

func (t Timing) String() string {
	switch t {
	case Early:
		return "EARLY"
	case OnTime:
		return "ON_TIME"
	case Late:
		return "LATE"
	default:
		return "UNKNOWN_TIMING"
	}
}

// Info is the pane metadata attached to an emission (§4.5).
type Info struct {
	Window              window.Window
	Timing              Timing
	Index               int
	NonSpeculativeIndex int
	IsFirst             bool
	IsLast              bool
}
