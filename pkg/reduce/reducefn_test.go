package reduce

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/windower/pkg/state"
)

func TestBuffering_ProcessAndExtract(t *testing.T) {
	b := state.NewMemoryBackend()
	fn := NewBuffering()

	fn.ProcessValue(b, "k", "ns", []byte("a"))
	fn.ProcessValue(b, "k", "ns", []byte("b"))

	got := fn.Extract(b, "k", "ns")
	assert.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b")}, got)

	fn.Clear(b, "k", "ns")
	assert.Empty(t, fn.Extract(b, "k", "ns"))
}

func TestBuffering_Merge(t *testing.T) {
	b := state.NewMemoryBackend()
	fn := NewBuffering()

	fn.ProcessValue(b, "k", "src-a", []byte("a"))
	fn.ProcessValue(b, "k", "src-b", []byte("b"))

	fn.Merge(b, "k", []state.Namespace{"src-a", "src-b"}, "result")
	require.NoError(t, b.Persist("k"))

	got := fn.Extract(b, "k", "result")
	assert.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b")}, got)
}

type sumCombine struct{}

func (sumCombine) CreateAccumulator() []byte { return []byte{0} }

func (sumCombine) AddInput(acc, value []byte) []byte {
	return []byte{acc[0] + value[0]}
}

func (sumCombine) MergeAccumulators(accs [][]byte) []byte {
	var total byte
	for _, a := range accs {
		total += a[0]
	}
	return []byte{total}
}

func (sumCombine) ExtractOutput(acc []byte) []byte {
	return bytes.Clone(acc)
}

func TestCombining_ProcessAndExtract(t *testing.T) {
	b := state.NewMemoryBackend()
	fn := NewCombining(sumCombine{})

	fn.ProcessValue(b, "k", "ns", []byte{2})
	fn.ProcessValue(b, "k", "ns", []byte{3})

	got := fn.Extract(b, "k", "ns")
	require.Len(t, got, 1)
	assert.Equal(t, byte(5), got[0][0])
}

func TestCombining_Merge(t *testing.T) {
	b := state.NewMemoryBackend()
	fn := NewCombining(sumCombine{})

	fn.ProcessValue(b, "k", "src-a", []byte{2})
	fn.ProcessValue(b, "k", "src-b", []byte{3})

	fn.Merge(b, "k", []state.Namespace{"src-a", "src-b"}, "result")

	got := fn.Extract(b, "k", "result")
	require.Len(t, got, 1)
	assert.Equal(t, byte(5), got[0][0])

	// merge clears the source accumulators immediately, unlike Buffering's deferred clear
	assert.Empty(t, fn.Extract(b, "k", "src-a"))
	assert.Empty(t, fn.Extract(b, "k", "src-b"))
}
