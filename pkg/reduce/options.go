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
	"github.com/flowcore/windower/pkg/trigger"
	"github.com/flowcore/windower/pkg/watermark"
	"github.com/flowcore/windower/pkg/window"
)

// Config is the Executor construction surface: every collaborator §6 says the runtime supplies,
// plus the window-strategy configuration of §6's ENUMERATED block.
type Config struct {
	Window   *window.Options
	Trigger  *trigger.Trigger
	Fn       ReduceFn
	Backend  state.Backend
	Timers   *timer.Service
	Output   *watermark.OutputWatermark
	Sink     OutputSink
	Counters Counters
	Clock    Clock
}

// Option mutates a Config under construction.
type Option func(*Config) error

// defaultConfig returns the §6 defaults: fixed 1-minute windows, AfterWatermark.past_end_of_window,
// a buffering ReduceFn, an in-memory backend, a fresh timer service and output watermark tracker,
// no-op counters, and the system clock. A Sink must still be supplied; there is no sensible
// default destination for emitted panes.
func defaultConfig() *Config {
	return &Config{
		Window:   window.DefaultOptions(),
		Trigger:  trigger.DefaultTrigger(),
		Fn:       NewBuffering(),
		Backend:  state.NewMemoryBackend(),
		Timers:   timer.New(),
		Output:   watermark.New(),
		Counters: noopCounters{},
		Clock:    systemClock{},
	}
}

// WithWindowOptions sets the window-strategy configuration (§6).
func WithWindowOptions(o *window.Options) Option {
	return func(c *Config) error {
		c.Window = o
		return nil
	}
}

// WithTrigger sets the trigger tree's root. Compilation failures surface from New, not here.
func WithTrigger(root *trigger.Trigger) Option {
	return func(c *Config) error {
		c.Trigger = root
		return nil
	}
}

// WithReduceFn sets the ReduceFn.
func WithReduceFn(fn ReduceFn) Option {
	return func(c *Config) error {
		c.Fn = fn
		return nil
	}
}

// WithBackend sets the state backend.
func WithBackend(b state.Backend) Option {
	return func(c *Config) error {
		c.Backend = b
		return nil
	}
}

// WithTimers sets the timer service.
func WithTimers(t *timer.Service) Option {
	return func(c *Config) error {
		c.Timers = t
		return nil
	}
}

// WithOutputWatermark sets the cross-key output watermark tracker.
func WithOutputWatermark(o *watermark.OutputWatermark) Option {
	return func(c *Config) error {
		c.Output = o
		return nil
	}
}

// WithSink sets the destination for emitted panes. Required: New fails without one.
func WithSink(sink OutputSink) Option {
	return func(c *Config) error {
		c.Sink = sink
		return nil
	}
}

// WithCounters sets the Counters trait.
func WithCounters(counters Counters) Option {
	return func(c *Config) error {
		c.Counters = counters
		return nil
	}
}

// WithClock sets the processing-time and synchronized-processing-time source.
func WithClock(clock Clock) Option {
	return func(c *Config) error {
		c.Clock = clock
		return nil
	}
}

func configure(opts ...Option) (*Config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.Sink == nil {
		return nil, fmt.Errorf("reduce: an OutputSink is required (WithSink)")
	}
	return c, nil
}
