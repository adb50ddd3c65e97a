package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario3_AfterAll reproduces §8 scenario 3: AfterAll(T1,T2) over a fixed [0,10) window
// with two mock triggers.
func TestScenario3_AfterAll(t *testing.T) {
	t1, t2 := NewMock(), NewMock()
	t1.SetScript(Continue, FireAndFinish)
	t2.SetScript(Continue, Continue, FireAndFinish)

	root := AfterAllOf(t1, t2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tester := NewTester(root, base.Add(10*time.Millisecond))

	fired := tester.ProcessElement(base.Add(time.Millisecond), time.Time{}, time.Time{})
	assert.False(t, fired, "element 1: both continue, no pane")

	fired = tester.ProcessElement(base.Add(2*time.Millisecond), time.Time{}, time.Time{})
	assert.False(t, fired, "element 2: T1 fires but T2 continues, no pane yet")
	assert.False(t, tester.IsMarkedFinished())

	fired = tester.ProcessElement(base.Add(3*time.Millisecond), time.Time{}, time.Time{})
	assert.True(t, fired, "element 3: T2 fires, AfterAll now fires")
	assert.True(t, tester.IsMarkedFinished())
	assert.True(t, tester.IsClosed())

	require.Len(t, tester.ExtractOutput(), 1)
	assert.Equal(t, uint64(3), tester.ExtractOutput()[0].Count)
}

// TestScenario4_RepeatedlyOrFinally reproduces §8 scenario 4: Repeatedly(T) until U, fixed
// [0,10).
func TestScenario4_RepeatedlyOrFinally(t *testing.T) {
	tt, u := NewMock(), NewMock()
	tt.SetScript(Continue, FireAndFinish, Fire)
	u.SetScript(Continue, Continue, FireAndFinish)

	root := RepeatedlyForever(tt)
	root.OrFinally(u)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tester := NewTester(root, base.Add(10*time.Millisecond))

	fired := tester.ProcessElement(base.Add(time.Millisecond), time.Time{}, time.Time{})
	assert.False(t, fired, "element 1: both continue, no pane")

	fired = tester.ProcessElement(base.Add(2*time.Millisecond), time.Time{}, time.Time{})
	assert.True(t, fired, "element 2: T fires, Repeatedly fires")
	assert.False(t, tester.IsMarkedFinished(), "root not finished, Repeatedly resets T")
	require.Len(t, tester.ExtractOutput(), 1)
	assert.Equal(t, uint64(2), tester.ExtractOutput()[0].Count)

	fired = tester.ProcessElement(base.Add(3*time.Millisecond), time.Time{}, time.Time{})
	assert.True(t, fired, "element 3: U fires, Repeatedly+orFinally fires and finishes")
	assert.True(t, tester.IsMarkedFinished())
	assert.True(t, tester.IsClosed())

	require.Len(t, tester.ExtractOutput(), 2)
	assert.Equal(t, uint64(1), tester.ExtractOutput()[1].Count)
}

// TestScenario5_AfterFirstOverMergingSessions reproduces §8 scenario 5: AfterFirst(T1,T2) over
// merging session windows.
func TestScenario5_AfterFirstOverMergingSessions(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newRoot := func() (*Trigger, *Trigger, *Trigger) {
		t1, t2 := NewMock(), NewMock()
		root := AfterFirstOf(t1, t2)
		return root, t1, t2
	}

	root1, t1a, t2a := newRoot()
	tester1 := NewTester(root1, base.Add(11*time.Millisecond))
	tester1.ProcessElement(base.Add(time.Millisecond), time.Time{}, time.Time{})
	_ = t1a
	_ = t2a

	root2, t1b, t2b := newRoot()
	tester2 := NewTester(root2, base.Add(18*time.Millisecond))
	tester2.ProcessElement(base.Add(8*time.Millisecond), time.Time{}, time.Time{})
	_ = t1b
	_ = t2b

	// Merge window [1,11) and [8,18) into [1,18): on_merge re-evaluates children against the
	// merged pane (two elements total).
	tester1.MergeWindows(tester2)
	tester1.WindowEnd = base.Add(18 * time.Millisecond)

	// Re-point the scripts onto the surviving (merged) tree's Mock nodes, matching the leaf
	// objects reachable from tester1's root.
	mergedT1 := root1.Children[0]
	mergedT2 := root1.Children[1]
	mergedT1.SetScript(Continue)
	mergedT2.SetScript(FireAndFinish)

	fired := tester1.ProcessElement(base.Add(9*time.Millisecond), time.Time{}, time.Time{})
	assert.True(t, fired, "T2 reports FIRE_AND_FINISH on the merged window")
	assert.True(t, tester1.IsMarkedFinished())
	assert.True(t, tester1.IsClosed())

	require.Len(t, tester1.ExtractOutput(), 1)
	assert.Equal(t, uint64(3), tester1.ExtractOutput()[0].Count)
}

func TestIsOnceTrigger(t *testing.T) {
	assert.True(t, IsOnceTrigger(AfterWatermarkPastEndOfWindow()))
	assert.True(t, IsOnceTrigger(AfterPaneElementCountAtLeast(1)))
	assert.False(t, IsOnceTrigger(RepeatedlyForever(AfterPaneElementCountAtLeast(1))))
	assert.False(t, IsOnceTrigger(AfterEachInOrder(AfterPaneElementCountAtLeast(1))))
	assert.True(t, IsOnceTrigger(AfterAllOf(AfterPaneElementCountAtLeast(1), AfterPaneElementCountAtLeast(2))))
	assert.False(t, IsOnceTrigger(AfterAllOf(AfterPaneElementCountAtLeast(1), RepeatedlyForever(AfterPaneElementCountAtLeast(2)))))
}

func TestAfterWatermarkEndOfWindow_Basic(t *testing.T) {
	root := AfterWatermarkPastEndOfWindow()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tester := NewTester(root, base.Add(10*time.Millisecond))

	tester.ProcessElement(base.Add(time.Millisecond), time.Time{}, time.Time{})
	assert.False(t, tester.AdvanceWatermark(base.Add(9*time.Millisecond)))
	assert.True(t, tester.AdvanceWatermark(base.Add(10*time.Millisecond)))
	assert.True(t, tester.IsClosed())
}

func TestAfterPane_ElementCountAtLeast(t *testing.T) {
	root := AfterPaneElementCountAtLeast(3)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tester := NewTester(root, base.Add(time.Minute))

	assert.False(t, tester.ProcessElement(base, time.Time{}, time.Time{}))
	assert.False(t, tester.ProcessElement(base, time.Time{}, time.Time{}))
	assert.True(t, tester.ProcessElement(base, time.Time{}, time.Time{}))
}
