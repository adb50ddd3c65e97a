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

// Package partition identifies a (key, window) pair. It is the address every per-key state
// cell, timer, and pane is keyed on.
package partition

import (
	"fmt"
	"strings"
	"time"
)

// ID uniquely addresses a window instance for a given key set. Two active windows for the
// same key never overlap (spec §3 invariant), so (Keys, Start, End) identifies one window; a
// session merge that widens Start/End yields a different ID.
type ID struct {
	Keys  []string
	Start time.Time
	End   time.Time
}

func (p ID) String() string {
	return fmt.Sprintf("%s-%d-%d", strings.Join(p.Keys, ":"), p.Start.UnixNano(), p.End.UnixNano())
}

// MaxTimestamp returns end - 1 tick, the inclusive upper bound of the half-open window [Start,
// End) (spec §3).
func (p ID) MaxTimestamp() time.Time {
	return p.End.Add(-time.Nanosecond)
}
