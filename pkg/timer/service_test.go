package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/flowcore/windower/pkg/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func tag(ns string, d Domain) Tag {
	return Tag{Namespace: state.Namespace(ns), Domain: d}
}

func TestService_FiresInTimestampOrder(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Set("k", tag("w1", EventTime), base.Add(30*time.Second))
	s.Set("k", tag("w2", EventTime), base.Add(10*time.Second))
	s.Set("k", tag("w3", EventTime), base.Add(20*time.Second))

	fired := s.AdvanceWatermark("k", base.Add(time.Minute))
	require.Len(t, fired, 3)
	assert.Equal(t, tag("w2", EventTime), fired[0].Tag)
	assert.Equal(t, tag("w3", EventTime), fired[1].Tag)
	assert.Equal(t, tag("w1", EventTime), fired[2].Tag)
}

func TestService_AdvancePartial(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Set("k", tag("w1", EventTime), base.Add(10*time.Second))
	s.Set("k", tag("w2", EventTime), base.Add(20*time.Second))

	fired := s.AdvanceWatermark("k", base.Add(15*time.Second))
	require.Len(t, fired, 1)
	assert.Equal(t, tag("w1", EventTime), fired[0].Tag)
	assert.True(t, s.Pending("k", EventTime))

	fired = s.AdvanceWatermark("k", base.Add(25*time.Second))
	require.Len(t, fired, 1)
	assert.Equal(t, tag("w2", EventTime), fired[0].Tag)
	assert.False(t, s.Pending("k", EventTime))
}

func TestService_SetReplacesEarlier(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tg := tag("w1", EventTime)

	s.Set("k", tg, base.Add(10*time.Second))
	s.Set("k", tg, base.Add(20*time.Second))

	fired := s.AdvanceWatermark("k", base.Add(15*time.Second))
	assert.Empty(t, fired, "earlier timer must have been replaced, not fired")

	fired = s.AdvanceWatermark("k", base.Add(25*time.Second))
	require.Len(t, fired, 1)
	assert.Equal(t, base.Add(20*time.Second), fired[0].Timestamp)
}

func TestService_SetFromWithinFiringCallback(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tg := tag("w1", EventTime)

	s.Set("k", tg, base.Add(10*time.Second))
	fired := s.AdvanceWatermark("k", base.Add(10*time.Second))
	require.Len(t, fired, 1)

	// Re-arming the same tag from the firing callback must not be treated as canceling
	// the event that just fired; it starts a fresh, independent timer.
	s.Set("k", tg, base.Add(30*time.Second))
	fired = s.AdvanceWatermark("k", base.Add(20*time.Second))
	assert.Empty(t, fired)
	fired = s.AdvanceWatermark("k", base.Add(30*time.Second))
	require.Len(t, fired, 1)
}

func TestService_Delete(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tg := tag("w1", EventTime)

	s.Set("k", tg, base.Add(10*time.Second))
	s.Delete("k", tg)

	fired := s.AdvanceWatermark("k", base.Add(time.Minute))
	assert.Empty(t, fired)
}

func TestService_SynchronizedProcessingTimeBoundedByUpstream(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tg := tag("w1", SynchronizedProcessingTime)

	s.Set("k", tg, base.Add(20*time.Second))

	// Local processing time races ahead of the upstream synchronized clock: the timer must
	// not fire until upstream catches up.
	fired := s.AdvanceProcessingTime("k", base.Add(time.Minute), base.Add(5*time.Second))
	assert.Empty(t, fired)
	assert.Equal(t, base.Add(5*time.Second), s.CurrentSynchronizedProcessingTime("k"))

	fired = s.AdvanceProcessingTime("k", base.Add(time.Minute), base.Add(25*time.Second))
	require.Len(t, fired, 1)
	assert.Equal(t, tg, fired[0].Tag)
}

func TestService_DomainsAreIndependent(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Set("k", tag("w1", EventTime), base.Add(10*time.Second))
	s.Set("k", tag("w1", ProcessingTime), base.Add(10*time.Second))

	fired := s.AdvanceProcessingTime("k", base.Add(time.Minute), base.Add(time.Minute))
	require.Len(t, fired, 1)
	assert.Equal(t, ProcessingTime, fired[0].Tag.Domain)
	assert.True(t, s.Pending("k", EventTime))
}

func TestService_KeysAreIndependent(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Set("k1", tag("w1", EventTime), base.Add(10*time.Second))
	s.Set("k2", tag("w1", EventTime), base.Add(10*time.Second))

	fired := s.AdvanceWatermark("k1", base.Add(time.Minute))
	require.Len(t, fired, 1)
	assert.True(t, s.Pending("k2", EventTime), "advancing k1 must not fire k2's timers")
}
