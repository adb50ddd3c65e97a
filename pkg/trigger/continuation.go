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

// Continuation computes t's continuation trigger (§4.2.3): the trigger a downstream grouping
// should use to preserve t's timing intention rather than its exact firing condition. The
// result is a fresh, uncompiled tree; callers must Compile it before use.
func Continuation(t *Trigger) *Trigger {
	switch t.Kind {
	case AfterPane:
		// AfterPane(n) → AfterPane(1): downstream only needs "some data arrived", not the
		// same threshold.
		return AfterPaneElementCountAtLeast(1)
	case AfterWatermarkEndOfWindow, Default:
		return AfterWatermarkPastEndOfWindow()
	case AfterWatermarkFirstElement:
		return AfterWatermarkPastFirstElementInPane(t.Delay)
	case AfterProcessingTime:
		return AfterProcessingTimePastFirstElementInPane(t.Delay)
	case AfterSynchronizedProcessingTime:
		return AfterSynchronizedProcessingTimeTrigger()
	case Repeatedly:
		r := RepeatedlyForever(Continuation(t.Sub))
		if t.Final != nil {
			r.OrFinally(Continuation(t.Final))
		}
		return r
	case AfterEach:
		children := make([]*Trigger, len(t.Children))
		for i, c := range t.Children {
			children[i] = Continuation(c)
		}
		return AfterEachInOrder(children...)
	case AfterFirst:
		children := make([]*Trigger, len(t.Children))
		for i, c := range t.Children {
			children[i] = Continuation(c)
		}
		return AfterFirstOf(children...)
	case AfterAll:
		children := make([]*Trigger, len(t.Children))
		for i, c := range t.Children {
			children[i] = Continuation(c)
		}
		return AfterAllOf(children...)
	case Mock:
		return NewMock()
	default:
		return AfterWatermarkPastEndOfWindow()
	}
}
