package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDrawsPathAndHighlights(t *testing.T) {
	g := DefaultGrid()
	frame := Render(g, Sequence{0, 4, 8}, nil)

	require.Len(t, frame.Nodes, NodeCount)
	assert.Equal(t, 3, frame.VisitedCount())
	assert.True(t, frame.Nodes[4].Visited)
	assert.False(t, frame.Nodes[1].Visited)

	require.Len(t, frame.Segments, 2)
	assert.Equal(t, Segment{FromNode: 0, ToNode: 4, From: g.Center(0), To: g.Center(4)}, frame.Segments[0])
	assert.Equal(t, 8, frame.Segments[1].ToNode)
	assert.Nil(t, frame.Live)
}

func TestRenderLiveSegmentFollowsPointer(t *testing.T) {
	g := DefaultGrid()
	pointer := Point{X: 10, Y: 290}
	frame := Render(g, Sequence{2}, &pointer)

	assert.Empty(t, frame.Segments)
	require.NotNil(t, frame.Live)
	assert.Equal(t, g.Center(2), frame.Live.From)
	assert.Equal(t, pointer, frame.Live.To)
}

func TestRenderEmpty(t *testing.T) {
	frame := Render(DefaultGrid(), nil, nil)
	assert.Len(t, frame.Nodes, NodeCount)
	assert.Empty(t, frame.Segments)
	assert.Zero(t, frame.VisitedCount())
}

func TestTrace(t *testing.T) {
	g := DefaultGrid()
	events := []Event{
		{Type: EventDown, X: 50, Y: 50},
		{Type: EventMove, X: 150, Y: 50},
		{Type: EventMove, X: 250, Y: 50},
		{Type: EventMove, X: 250, Y: 150},
		{Type: EventUp},
	}
	res, err := Trace(g, events)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, "0125", res.Encoded)

	res, err = Trace(g, events[:3])
	require.NoError(t, err)
	assert.Equal(t, StateDragging, res.State)
	assert.Equal(t, Sequence{0, 1, 2}, res.Sequence)
	assert.Empty(t, res.Encoded)

	_, err = Trace(g, []Event{{Type: "tap"}})
	assert.Error(t, err)
}
