package models

import (
	"testing"

	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/stretchr/testify/require"
)

func TestWanderer(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	bounds := geometry.MustGeometry(100, 300, 100, 300)
	wanderer, err := NewWanderer(w, bounds, 20, 30, 50, 1)
	require.NoError(t, err)
	require.Len(t, wanderer.Objects(), 20)
	require.Equal(t, 20, w.ObjectCount())

	for i := 0; i < 50; i++ {
		wanderer.HandleFrame()
	}

	for _, o := range wanderer.Objects() {
		loc, ok := o.CurrentLoc()
		require.True(t, ok)
		require.True(t, bounds.Contains(loc), "object %d at %s", o.ID(), loc)
		require.NotNil(t, o.Perceiver())
	}
	require.NoError(t, w.Tree().CheckInvariants())

	wanderer.Close()
	require.Empty(t, wanderer.Objects())
	require.Zero(t, w.ObjectCount())
	require.Zero(t, w.Tree().ElementCount())
}

func TestClamp(t *testing.T) {
	require.Equal(t, 5, clamp(5, 0, 10))
	require.Equal(t, 0, clamp(-5, 0, 10))
	require.Equal(t, 10, clamp(50, 0, 10))
}
