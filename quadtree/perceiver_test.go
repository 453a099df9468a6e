package quadtree

import (
	"testing"

	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/stretchr/testify/require"
)

func TestMobilePerceiver(t *testing.T) {
	owner := newTestElement(1, 500, 500)
	p := NewMobilePerceiver(owner, 100)

	require.Equal(t, uint64(1), p.ID())
	require.Equal(t, owner, p.Owner())
	require.Equal(t, 100, p.Radius())

	t.Run("overlaps", func(t *testing.T) {
		require.True(t, p.Overlaps(geometry.MustGeometry(0, 1000, 0, 1000)))
		require.True(t, p.Overlaps(geometry.MustGeometry(600, 700, 400, 600)))
		require.False(t, p.Overlaps(geometry.MustGeometry(601, 700, 400, 600)))
	})

	t.Run("should notify new element", func(t *testing.T) {
		require.False(t, p.ShouldNotifyNewElement(owner))
		require.True(t, p.ShouldNotifyNewElement(newTestElement(2, 550, 500)))
		require.False(t, p.ShouldNotifyNewElement(newTestElement(3, 700, 500)))

		big := newTestElement(4, 700, 500)
		big.perceptionRadius = 250
		require.True(t, p.ShouldNotifyNewElement(big))

		wide := newTestElement(5, 650, 500)
		wide.objectRadius = 50
		require.True(t, p.ShouldNotifyNewElement(wide))

		gone := newTestElement(6, 510, 500)
		gone.clearLoc()
		require.False(t, p.ShouldNotifyNewElement(gone))
	})

	t.Run("should update based on loc", func(t *testing.T) {
		p := NewMobilePerceiver(owner, 100)
		require.True(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(500, 0, 500)))

		p.recordUpdate()
		require.False(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(500, 0, 500)))
		require.True(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(501, 0, 500)))

		p.SetUpdateThreshold(20)
		require.False(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(515, 0, 500)))
		require.True(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(530, 0, 500)))
	})

	t.Run("should update uses tree hysteresis", func(t *testing.T) {
		tree := New(geometry.MustGeometry(0, 1000, 0, 1000), WithHysteresis(50))
		p := NewMobilePerceiver(owner, 100)
		p.attach(tree)
		p.recordUpdate()

		require.False(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(540, 0, 500)))
		require.True(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(560, 0, 500)))
	})
}

func TestFixedPerceiver(t *testing.T) {
	p := NewFixedPerceiver(7, geometry.MustGeometry(0, 100, 0, 100))

	require.Equal(t, uint64(7), p.ID())
	require.True(t, p.Overlaps(geometry.MustGeometry(50, 150, 50, 150)))
	require.False(t, p.Overlaps(geometry.MustGeometry(100, 150, 0, 100)))
	require.False(t, p.ShouldUpdateBasedOnLoc(geometry.NewPoint(0, 0, 0)))

	require.True(t, p.ShouldNotifyNewElement(newTestElement(1, 50, 50)))
	require.False(t, p.ShouldNotifyNewElement(newTestElement(2, 150, 50)))

	loud := newTestElement(3, 150, 50)
	loud.perceptionRadius = 60
	require.True(t, p.ShouldNotifyNewElement(loud))

	e := newTestElement(4, 50, 50)
	require.False(t, p.ShouldFreeElement(e))
	require.True(t, p.markVisible(e))
	require.True(t, p.ShouldFreeElement(e))
	require.Len(t, p.Visible(), 1)
}
