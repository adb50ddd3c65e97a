package reduce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/flowcore/windower/pkg/window"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSink collects every emitted pane for assertions.
type fakeSink struct {
	emitted []emission
}

type emission struct {
	key       string
	values    [][]byte
	timestamp time.Time
	info      Info
}

func (s *fakeSink) Emit(key string, values [][]byte, timestamp time.Time, info Info) {
	s.emitted = append(s.emitted, emission{key: key, values: values, timestamp: timestamp, info: info})
}

func ts(base time.Time, ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func baseTime() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func strs(values [][]byte) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// TestScenario1_FixedWindowsDefaultTrigger reproduces §8 scenario 1.
func TestScenario1_FixedWindowsDefaultTrigger(t *testing.T) {
	base := baseTime()
	sink := &fakeSink{}
	winOpts, err := window.Configure(window.WithWindowFn(window.NewFixed(10 * time.Millisecond)))
	require.NoError(t, err)

	e, err := New(context.Background(), WithWindowOptions(winOpts), WithSink(sink))
	require.NoError(t, err)

	e.ProcessElement("k", []byte("1"), ts(base, 1))
	e.ProcessElement("k", []byte("2"), ts(base, 9))
	e.ProcessElement("k", []byte("3"), ts(base, 15))
	e.ProcessElement("k", []byte("4"), ts(base, 19))
	e.ProcessElement("k", []byte("5"), ts(base, 30))

	e.AdvanceInputWatermark(ts(base, 9))
	assert.Empty(t, sink.emitted, "watermark has not yet reached window end")

	e.AdvanceInputWatermark(ts(base, 10))
	require.Len(t, sink.emitted, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, strs(sink.emitted[0].values))
	// EARLIEST (the default): the published timestamp is the minimum event time in the pane.
	assert.Equal(t, ts(base, 1), sink.emitted[0].timestamp)
	assert.Equal(t, OnTime, sink.emitted[0].info.Timing)

	e.AdvanceInputWatermark(ts(base, 100))
	require.Len(t, sink.emitted, 3)
	assert.ElementsMatch(t, []string{"3", "4"}, strs(sink.emitted[1].values))
	assert.Equal(t, ts(base, 15), sink.emitted[1].timestamp)
	assert.ElementsMatch(t, []string{"5"}, strs(sink.emitted[2].values))
	assert.Equal(t, ts(base, 30), sink.emitted[2].timestamp)
}

// TestScenario2_SessionWindowsMerge reproduces §8 scenario 2.
func TestScenario2_SessionWindowsMerge(t *testing.T) {
	base := baseTime()
	sink := &fakeSink{}
	winOpts, err := window.Configure(window.WithWindowFn(window.NewSessions(10 * time.Millisecond)))
	require.NoError(t, err)

	e, err := New(context.Background(), WithWindowOptions(winOpts), WithSink(sink))
	require.NoError(t, err)

	e.ProcessElement("k", []byte("1"), ts(base, 1))
	e.ProcessElement("k", []byte("2"), ts(base, 9))
	e.ProcessElement("k", []byte("3"), ts(base, 15))
	e.ProcessElement("k", []byte("4"), ts(base, 30))

	e.AdvanceInputWatermark(ts(base, 100))

	require.Len(t, sink.emitted, 2)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, strs(sink.emitted[0].values))
	assert.True(t, window.New(ts(base, 1), ts(base, 25)).Equal(sink.emitted[0].info.Window))
	assert.Equal(t, ts(base, 1), sink.emitted[0].timestamp)
	assert.ElementsMatch(t, []string{"4"}, strs(sink.emitted[1].values))
	assert.True(t, window.New(ts(base, 30), ts(base, 40)).Equal(sink.emitted[1].info.Window))
	assert.Equal(t, ts(base, 30), sink.emitted[1].timestamp)
}

// TestScenario6_BytesReadAccountedOnGroupOpen reproduces §8 scenario 6.
func TestScenario6_BytesReadAccountedOnGroupOpen(t *testing.T) {
	base := baseTime()
	sink := &fakeSink{}
	counters := &countingCounters{}
	winOpts, err := window.Configure(window.WithWindowFn(window.NewFixed(10 * time.Millisecond)))
	require.NoError(t, err)

	e, err := New(context.Background(), WithWindowOptions(winOpts), WithSink(sink), WithCounters(counters))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		e.ProcessElement("k", []byte("12345678"), ts(base, i))
	}
	e.AdvanceInputWatermark(ts(base, 10))

	require.Len(t, sink.emitted, 1)
	assert.Equal(t, 80, counters.totals[CounterBytesRead])
}

type countingCounters struct {
	totals map[string]int
}

func (c *countingCounters) Increment(name string, n int) {
	if c.totals == nil {
		c.totals = make(map[string]int)
	}
	c.totals[name] += n
}

func TestExecutor_ClosedWindowDropsLateElement(t *testing.T) {
	base := baseTime()
	sink := &fakeSink{}
	counters := &countingCounters{}
	// Allowed lateness keeps the GC bound well past window end, so the closed-window check (not
	// the lateness check) is what rejects the second element.
	winOpts, err := window.Configure(
		window.WithWindowFn(window.NewFixed(10*time.Millisecond)),
		window.WithAllowedLateness(100*time.Millisecond),
	)
	require.NoError(t, err)

	e, err := New(context.Background(), WithWindowOptions(winOpts), WithSink(sink), WithCounters(counters))
	require.NoError(t, err)

	e.ProcessElement("k", []byte("1"), ts(base, 1))
	e.AdvanceInputWatermark(ts(base, 10))
	require.Len(t, sink.emitted, 1)

	// Default trigger finishes after its one firing, so the window is CLOSED; a late element
	// for the same window must be dropped, not silently re-open it.
	e.ProcessElement("k", []byte("2"), ts(base, 2))
	assert.Equal(t, 1, counters.totals[CounterDroppedClosedWindow])
	assert.Equal(t, 0, counters.totals[CounterDroppedLateness])
}

func TestExecutor_RequiresSink(t *testing.T) {
	_, err := New(context.Background())
	assert.Error(t, err)
}
