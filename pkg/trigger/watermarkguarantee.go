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

import (
	"time"

	"github.com/flowcore/windower/pkg/window"
)

// MaxInstant bounds the watermark range a guarantee can be expressed in; triggers with no
// watermark-bound guarantee (processing-time and element-count based) report this value,
// meaning "no watermark value guarantees firing" (§4.2.4).
var MaxInstant = window.MaxInstant

// WatermarkThatGuaranteesFiring returns the minimum input watermark value such that, once
// reached, t is guaranteed to have fired at least once for a window ending at windowEnd. It is
// used to pick default values for empty side-input windows (§4.2.4).
func WatermarkThatGuaranteesFiring(t *Trigger, windowEnd time.Time) time.Time {
	switch t.Kind {
	case AfterWatermarkEndOfWindow, Default:
		return windowEnd
	case AfterAll:
		latest := windowEnd
		for _, c := range t.Children {
			if g := WatermarkThatGuaranteesFiring(c, windowEnd); g.After(latest) {
				latest = g
			}
		}
		return latest
	case AfterFirst:
		if len(t.Children) == 0 {
			return MaxInstant
		}
		earliest := MaxInstant
		for _, c := range t.Children {
			if g := WatermarkThatGuaranteesFiring(c, windowEnd); g.Before(earliest) {
				earliest = g
			}
		}
		return earliest
	case Repeatedly:
		return WatermarkThatGuaranteesFiring(t.Sub, windowEnd)
	case AfterEach:
		latest := windowEnd
		for _, c := range t.Children {
			if g := WatermarkThatGuaranteesFiring(c, windowEnd); g.After(latest) {
				latest = g
			}
		}
		return latest
	case AfterWatermarkFirstElement:
		// No guarantee can be made without knowing the first element's timestamp in
		// advance; windowEnd is the tightest known bound once the window itself closes.
		return windowEnd
	default:
		// AfterProcessingTime, AfterSynchronizedProcessingTime, AfterPane, Mock: not bound
		// to the watermark at all.
		return MaxInstant
	}
}
