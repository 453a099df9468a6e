package geometry

import "github.com/aukilabs/go-tooling/pkg/errors"

// Boundary is a closed polygon on the X/Z plane. The last point connects back
// to the first.
type Boundary struct {
	Points []Point
}

func NewBoundary(points ...Point) (Boundary, error) {
	if len(points) < 3 {
		return Boundary{}, errors.New("boundary needs at least 3 points").
			WithType(ErrTypeInvalidGeometry).
			WithTag("points", len(points))
	}

	b := Boundary{Points: make([]Point, len(points))}
	copy(b.Points, points)
	return b, nil
}

// Contains uses the even-odd rule.
func (b Boundary) Contains(p Point) bool {
	inside := false

	n := len(b.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi := b.Points[i]
		pj := b.Points[j]

		if (pi.Z > p.Z) == (pj.Z > p.Z) {
			continue
		}

		crossX := float64(pj.X-pi.X)*float64(p.Z-pi.Z)/float64(pj.Z-pi.Z) + float64(pi.X)
		if float64(p.X) < crossX {
			inside = !inside
		}
	}

	return inside
}

// Bounds returns the smallest geometry holding every point of the boundary.
func (b Boundary) Bounds() Geometry {
	if len(b.Points) == 0 {
		return Geometry{}
	}

	g := Geometry{
		MinX: b.Points[0].X,
		MaxX: b.Points[0].X,
		MinZ: b.Points[0].Z,
		MaxZ: b.Points[0].Z,
	}
	for _, p := range b.Points[1:] {
		g.MinX = min(g.MinX, p.X)
		g.MaxX = max(g.MaxX, p.X)
		g.MinZ = min(g.MinZ, p.Z)
		g.MaxZ = max(g.MaxZ, p.Z)
	}
	return g
}

// Intersects is the test used to attach regions to tree nodes: a boundary
// point lies in g, a corner of g lies in the boundary, or an edge of the
// boundary crosses an edge of g.
func (b Boundary) Intersects(g Geometry) bool {
	for _, p := range b.Points {
		if g.ContainsInclusive(p) {
			return true
		}
	}

	corners := g.Corners()
	for _, c := range corners {
		if b.Contains(c) {
			return true
		}
	}

	edges := [4][2]Point{
		{corners[0], corners[1]},
		{corners[1], corners[3]},
		{corners[3], corners[2]},
		{corners[2], corners[0]},
	}

	n := len(b.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		for _, e := range edges {
			if segmentsIntersect(b.Points[j], b.Points[i], e[0], e[1]) {
				return true
			}
		}
	}

	return false
}

func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := orientation(b1, b2, a1)
	d2 := orientation(b1, b2, a2)
	d3 := orientation(a1, a2, b1)
	d4 := orientation(a1, a2, b2)

	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orientation(a, b, c Point) int64 {
	return int64(b.X-a.X)*int64(c.Z-a.Z) - int64(b.Z-a.Z)*int64(c.X-a.X)
}
