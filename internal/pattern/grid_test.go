package pattern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridValidation(t *testing.T) {
	_, err := NewGrid(0, 10)
	require.Error(t, err)
	_, err = NewGrid(math.NaN(), 10)
	require.Error(t, err)
	_, err = NewGrid(math.Inf(1), 10)
	require.Error(t, err)
	_, err = NewGrid(300, math.NaN())
	require.Error(t, err)
	_, err = NewGrid(300, math.Inf(1))
	require.Error(t, err)
	_, err = NewGrid(300, 51)
	require.Error(t, err, "overlapping nodes are rejected")

	g, err := NewGrid(300, 50)
	require.NoError(t, err)
	assert.Equal(t, 300.0, g.Size())
	assert.Equal(t, 50.0, g.Radius())
}

func TestNewGridDefaultsRadiusToSizeRatio(t *testing.T) {
	g, err := NewGrid(600, 0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, g.Radius())

	g, err = NewGrid(120, -3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, g.Radius())

	g, err = NewGrid(DefaultGrid().Size(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid(), g)

	node, ok := g.HitTest(g.Center(4))
	require.True(t, ok)
	assert.Equal(t, 4, node)
}

func TestCenters(t *testing.T) {
	g := DefaultGrid()
	assert.Equal(t, Point{X: 50, Y: 50}, g.Center(0))
	assert.Equal(t, Point{X: 150, Y: 150}, g.Center(4))
	assert.Equal(t, Point{X: 250, Y: 50}, g.Center(2))
	assert.Equal(t, Point{X: 50, Y: 250}, g.Center(6))
	assert.Equal(t, Point{X: 250, Y: 250}, g.Center(8))
}

func TestHitTest(t *testing.T) {
	g := DefaultGrid()

	node, ok := g.HitTest(Point{X: 155, Y: 145})
	require.True(t, ok)
	assert.Equal(t, 4, node)

	_, ok = g.HitTest(Point{X: 100, Y: 100})
	assert.False(t, ok, "gap between nodes")

	_, ok = g.HitTest(Point{X: 75, Y: 50})
	assert.False(t, ok, "distance equal to radius is outside")

	node, ok = g.HitTest(Point{X: 74.9, Y: 50})
	require.True(t, ok)
	assert.Equal(t, 0, node)
}
