package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"github.com/stretchr/testify/require"
)

func TestObserverAddRemove(t *testing.T) {
	o := NewObserver(1, nil)

	require.True(t, o.Add(10))
	require.False(t, o.Add(10))
	require.True(t, o.IsVisible(10))

	require.True(t, o.Remove(10))
	require.False(t, o.Remove(10))
	require.Empty(t, o.Visible())
}

func TestObserverHandleNewsAndFrees(t *testing.T) {
	var sentNews []ObjectView
	var sentFrees []uint64
	calls := 0

	o := NewObserver(1, func(news []ObjectView, frees []uint64) {
		calls++
		sentNews = news
		sentFrees = frees
	})

	a := NewWorldObject(10, "mob", geometry.NewPoint(1, 2, 3))
	b := NewWorldObject(11, "player", geometry.NewPoint(4, 5, 6))

	o.HandleNewsAndFrees(nil, []quadtree.Element{a, b}, nil)
	require.Equal(t, 1, calls)
	require.Empty(t, sentFrees)

	expected := []ObjectView{
		{ID: 10, Kind: "mob", X: 1, Y: 2, Z: 3},
		{ID: 11, Kind: "player", X: 4, Y: 5, Z: 6},
	}
	require.Empty(t, cmp.Diff(expected, sentNews))
	require.Equal(t, []uint64{10, 11}, o.Visible())

	o.HandleNewsAndFrees(nil, []quadtree.Element{a}, nil)
	require.Equal(t, 1, calls)

	o.HandleNewsAndFrees(nil, nil, []quadtree.Element{a, a})
	require.Equal(t, 2, calls)
	require.Empty(t, sentNews)
	require.Equal(t, []uint64{10}, sentFrees)
	require.Equal(t, []uint64{11}, o.Visible())
}

func TestObserverWithFixedPerceiver(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	o := NewWorldObject(w.NewObjectID(), "mob", geometry.NewPoint(100, 0, 100))
	require.NoError(t, w.Spawn(o))

	observer := NewObserver(99, nil)
	p := quadtree.NewFixedPerceiver(observer.ID, geometry.MustGeometry(0, 200, 0, 200))
	p.RegisterCallback(observer.HandleNewsAndFrees)

	w.Tree().AddFixedPerceiver(p)
	require.Equal(t, []uint64{o.ID()}, observer.Visible())

	require.NoError(t, w.Move(o, geometry.NewPoint(500, 0, 500)))
	require.Empty(t, observer.Visible())

	w.Tree().RemoveFixedPerceiver(p)
}
