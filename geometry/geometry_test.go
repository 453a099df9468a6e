package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGeometry(t *testing.T) {
	t.Run("valid bounds", func(t *testing.T) {
		g, err := NewGeometry(0, 1000, -500, 500)
		require.NoError(t, err)
		require.Equal(t, 1000, g.Width())
		require.Equal(t, 1000, g.Height())
		require.Equal(t, Point{X: 500, Z: 0}, g.Center())
	})

	t.Run("min equal to max", func(t *testing.T) {
		_, err := NewGeometry(0, 0, 0, 10)
		require.Error(t, err)
	})

	t.Run("min greater than max", func(t *testing.T) {
		_, err := NewGeometry(0, 10, 10, 0)
		require.Error(t, err)
	})
}

func TestGeometryContains(t *testing.T) {
	g := MustGeometry(0, 1000, 0, 1000)

	require.True(t, g.Contains(Point{X: 0, Z: 0}))
	require.True(t, g.Contains(Point{X: 999, Y: 12345, Z: 999}))
	require.False(t, g.Contains(Point{X: 1000, Z: 500}))
	require.False(t, g.Contains(Point{X: -1, Z: 500}))
	require.True(t, g.ContainsInclusive(Point{X: 1000, Z: 1000}))
	require.True(t, g.ContainsWithMargin(Point{X: 1040, Z: -40}, 50))
	require.False(t, g.ContainsWithMargin(Point{X: 1060, Z: 0}, 50))
}

func TestGeometryOverlaps(t *testing.T) {
	g := MustGeometry(0, 1000, 0, 1000)

	require.True(t, g.Overlaps(g))
	require.True(t, g.Overlaps(MustGeometry(500, 1500, 500, 1500)))
	require.True(t, g.Overlaps(MustGeometry(-10, 2000, -10, 2000)))
	require.False(t, g.Overlaps(MustGeometry(1000, 2000, 0, 1000)))
	require.False(t, g.Overlaps(MustGeometry(0, 1000, -1000, 0)))

	inter, ok := g.Intersection(MustGeometry(500, 1500, -500, 500))
	require.True(t, ok)
	require.Equal(t, MustGeometry(500, 1000, 0, 500), inter)

	_, ok = g.Intersection(MustGeometry(2000, 3000, 0, 10))
	require.False(t, ok)
}

func TestGeometryDivide(t *testing.T) {
	g := MustGeometry(0, 1000, 0, 1000)
	quadrants := g.Divide()

	require.Equal(t, MustGeometry(0, 500, 0, 500), quadrants[0])
	require.Equal(t, MustGeometry(500, 1000, 0, 500), quadrants[1])
	require.Equal(t, MustGeometry(0, 500, 500, 1000), quadrants[2])
	require.Equal(t, MustGeometry(500, 1000, 500, 1000), quadrants[3])

	area := 0
	for i, q := range quadrants {
		require.True(t, q.IsValid())
		require.True(t, g.ContainsGeometry(q))
		area += q.Width() * q.Height()

		for j, other := range quadrants {
			if i != j {
				require.False(t, q.Overlaps(other))
			}
		}
	}
	require.Equal(t, g.Width()*g.Height(), area)

	for x := 0; x < 1000; x += 125 {
		for z := 0; z < 1000; z += 125 {
			count := 0
			for _, q := range quadrants {
				if q.Contains(Point{X: x, Z: z}) {
					count++
				}
			}
			require.Equal(t, 1, count)
		}
	}

	require.False(t, MustGeometry(0, 1, 0, 10).CanDivide())
}

func TestGeometryDistanceTo(t *testing.T) {
	g := MustGeometry(0, 1000, 0, 1000)

	require.Zero(t, g.DistanceTo(Point{X: 500, Z: 500}))
	require.Equal(t, 100.0, g.DistanceTo(Point{X: 500, Z: -100}))
	require.Equal(t, 200.0, g.DistanceTo(Point{X: 1200, Z: 500}))
	require.Equal(t, 500.0, g.DistanceTo(Point{X: -300, Z: 1400}))

	require.True(t, g.OverlapsCircle(Point{X: 1300, Z: 500}, 300))
	require.False(t, g.OverlapsCircle(Point{X: 1300, Z: 500}, 299))
}

func TestGeometryCorners(t *testing.T) {
	corners := MustGeometry(0, 10, 20, 30).Corners()
	require.Equal(t, [4]Point{
		{X: 0, Z: 20},
		{X: 10, Z: 20},
		{X: 0, Z: 30},
		{X: 10, Z: 30},
	}, corners)
}
