package watermark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowcore/windower/pkg/window"
)

func TestCombine_Earliest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	combine := Combine(window.Earliest)
	got := combine(base.Add(10*time.Second), base.Add(5*time.Second))
	assert.Equal(t, base.Add(5*time.Second), got)
}

func TestCombine_Latest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	combine := Combine(window.Latest)
	got := combine(base.Add(10*time.Second), base.Add(5*time.Second))
	assert.Equal(t, base.Add(10*time.Second), got)
}

func TestContributionFor_LateElementUsesGCBound(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))
	watermark := base.Add(20 * time.Second)

	got := ContributionFor(window.Earliest, w, base.Add(2*time.Second), watermark, 5*time.Second)
	assert.Equal(t, GCBound(w, 5*time.Second), got)
}

func TestContributionFor_OnTimeElementUsesOwnTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))
	ts := base.Add(3 * time.Second)

	got := ContributionFor(window.Earliest, w, ts, base, 0)
	assert.Equal(t, ts, got)
}

func TestContributionFor_EndOfWindowClampsToWindowEnd(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))
	ts := base.Add(3 * time.Second)

	got := ContributionFor(window.EndOfWindowTime, w, ts, base, 0)
	assert.Equal(t, w.End, got)
}

func TestEmitTimestamp_DefaultsToMaxTimestampWhenAbsent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))

	got := EmitTimestamp(time.Time{}, false, w)
	assert.Equal(t, w.MaxTimestamp(), got)
}

func TestEmitTimestamp_ClampsHoldAfterMaxTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))

	got := EmitTimestamp(w.End.Add(time.Hour), true, w)
	assert.Equal(t, w.MaxTimestamp(), got)
}

func TestEmitTimestamp_UsesHeldInstantWhenWithinBounds(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := window.New(base, base.Add(10*time.Second))
	hold := base.Add(3 * time.Second)

	got := EmitTimestamp(hold, true, w)
	assert.Equal(t, hold, got)
}
