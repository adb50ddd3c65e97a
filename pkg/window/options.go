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

package window

import "time"

// AccumulationMode controls what a window's state retains across a fire. Only
// DISCARDING_FIRED_PANES is supported (§6); the core never attempts to reconstruct previously
// emitted contributions for a later pane.
type AccumulationMode int

const (
	DiscardingFiredPanes AccumulationMode = iota
)

// OutputTimeFn picks the timestamp recorded on an emitted pane and combined into a window's
// watermark hold (§4.5).
type OutputTimeFn int

const (
	Earliest OutputTimeFn = iota
	Latest
	EndOfWindowTime
)

// Options is the window-strategy configuration surface (§6). It is immutable once built by
// Configure; the reduce executor reads it but never writes it.
type Options struct {
	WindowFn         WindowFn
	AllowedLateness  time.Duration
	Accumulation     AccumulationMode
	OutputTime       OutputTimeFn
}

// Option mutates an Options under construction.
type Option func(*Options) error

// DefaultOptions returns Fixed(1 minute) windows, zero allowed lateness, discarding
// accumulation, and EARLIEST output time, matching §6's defaults (trigger defaults are the
// trigger package's concern, not this one's).
func DefaultOptions() *Options {
	return &Options{
		WindowFn:        NewFixed(time.Minute),
		AllowedLateness: 0,
		Accumulation:    DiscardingFiredPanes,
		OutputTime:      Earliest,
	}
}

// Configure applies opts over DefaultOptions and returns the result.
func Configure(opts ...Option) (*Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithWindowFn sets the window assignment strategy.
func WithWindowFn(fn WindowFn) Option {
	return func(o *Options) error {
		o.WindowFn = fn
		return nil
	}
}

// WithAllowedLateness sets how long past the watermark a window's state is kept before garbage
// collection (§4.7).
func WithAllowedLateness(d time.Duration) Option {
	return func(o *Options) error {
		o.AllowedLateness = d
		return nil
	}
}

// WithAccumulationMode sets the accumulation mode.
func WithAccumulationMode(m AccumulationMode) Option {
	return func(o *Options) error {
		o.Accumulation = m
		return nil
	}
}

// WithOutputTimeFn sets the output-time policy used for pane timestamps and watermark holds.
func WithOutputTimeFn(f OutputTimeFn) Option {
	return func(o *Options) error {
		o.OutputTime = f
		return nil
	}
}
