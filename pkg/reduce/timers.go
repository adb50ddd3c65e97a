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

	"github.com/flowcore/windower/pkg/state"
	"github.com/flowcore/windower/pkg/timer"
)

// Timer purposes scope a window's tag namespace so distinct reasons for waking up the same
// window never collide under §4.4's "idempotent for identical (namespace, domain)" rule.
const (
	purposeEndOfWindow = "eow"
	purposeGC          = "gc"
	purposeSync        = "sync"
)

func purposeNode(idx int) string {
	return fmt.Sprintf("node%d", idx)
}

func tagFor(ns state.Namespace, purpose string, domain timer.Domain) timer.Tag {
	return timer.Tag{Namespace: state.Namespace(string(ns) + ":" + purpose), Domain: domain}
}
