package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_AssignsDFSIndices(t *testing.T) {
	root := AfterAllOf(
		AfterPaneElementCountAtLeast(1),
		AfterEachInOrder(AfterWatermarkPastEndOfWindow(), AfterPaneElementCountAtLeast(2)),
	)

	c, err := Compile(root)
	require.NoError(t, err)
	require.Len(t, c.Nodes, 5)
	assert.Equal(t, 0, root.index)
	assert.Equal(t, 0, root.Index())
	assert.Equal(t, 1, root.Children[0].index)
	assert.Equal(t, 2, root.Children[1].index)
	assert.Equal(t, 4, root.Children[1].Children[1].index)
}

func TestCompile_RejectsEmptyComposite(t *testing.T) {
	root := &Trigger{Kind: AfterAll, index: -1}
	_, err := Compile(root)
	assert.Error(t, err)
}

func TestCompile_RejectsRepeatedlyWithoutSub(t *testing.T) {
	root := &Trigger{Kind: Repeatedly, index: -1}
	_, err := Compile(root)
	assert.Error(t, err)
}
