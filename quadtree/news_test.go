package quadtree

import (
	"testing"

	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/stretchr/testify/require"
)

func TestNewsAndFrees(t *testing.T) {
	t.Run("new then free cancels", func(t *testing.T) {
		p := NewFixedPerceiver(1, geometry.MustGeometry(0, 10, 0, 10))
		e := newTestElement(2, 5, 5)
		nf := newNewsAndFrees("test")

		nf.noteNewElement(p, e)
		nf.noteFreedElement(p, e)

		b, ok := nf.Perceiver(p)
		require.True(t, ok)
		require.Zero(t, b.Len())
		require.Zero(t, nf.Len())
		require.False(t, p.IsVisible(e))

		count, found := nf.ProcessNewsAndFrees(1)
		require.Zero(t, count)
		require.False(t, found)
	})

	t.Run("free then new cancels", func(t *testing.T) {
		p := NewFixedPerceiver(1, geometry.MustGeometry(0, 10, 0, 10))
		e := newTestElement(2, 5, 5)

		nf := newNewsAndFrees("test")
		nf.noteNewElement(p, e)
		nf.ProcessNewsAndFrees(0)

		nf = newNewsAndFrees("test")
		nf.noteFreedElement(p, e)
		nf.noteNewElement(p, e)
		require.Zero(t, nf.Len())
		require.True(t, p.IsVisible(e))
	})

	t.Run("duplicates are ignored", func(t *testing.T) {
		p := NewFixedPerceiver(1, geometry.MustGeometry(0, 10, 0, 10))
		e := newTestElement(2, 5, 5)
		nf := newNewsAndFrees("test")

		nf.noteNewElement(p, e)
		nf.noteNewElement(p, e)
		nf.noteFreedElement(p, newTestElement(3, 5, 5))

		b, ok := nf.Perceiver(p)
		require.True(t, ok)
		require.Len(t, b.News(), 1)
		require.Empty(t, b.Frees())
	})

	t.Run("process counts target", func(t *testing.T) {
		a := NewFixedPerceiver(1, geometry.MustGeometry(0, 10, 0, 10))
		b := NewFixedPerceiver(2, geometry.MustGeometry(0, 10, 0, 10))
		recA := newRecorder()
		recB := newRecorder()
		a.RegisterCallback(recA.callback)
		b.RegisterCallback(recB.callback)

		nf := newNewsAndFrees("test")
		nf.noteNewElement(a, newTestElement(10, 1, 1))
		nf.noteNewElement(a, newTestElement(11, 1, 1))
		nf.noteNewElement(b, newTestElement(12, 1, 1))

		count, found := nf.ProcessNewsAndFrees(1)
		require.True(t, found)
		require.Equal(t, 2, count)
		require.Equal(t, map[uint64]int{10: 1, 11: 1}, recA.visibleIDs())
		require.Equal(t, map[uint64]int{12: 1}, recB.visibleIDs())

		_, found = nf.ProcessNewsAndFrees(3)
		require.False(t, found)
	})
}
