package geometry

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const ErrTypeInvalidGeometry = "invalid-geometry"

// Point is a location in world units (millimeters). Y is the height and is
// ignored by the ground plane index.
type Point struct {
	X int
	Y int
	Z int
}

func NewPoint(x, y, z int) Point {
	return Point{X: x, Y: y, Z: z}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Geometry is an axis aligned rectangle on the X/Z plane. Bounds are half
// open: a point on the max edge belongs to the neighbour.
type Geometry struct {
	MinX int
	MaxX int
	MinZ int
	MaxZ int
}

func NewGeometry(minX, maxX, minZ, maxZ int) (Geometry, error) {
	g := Geometry{MinX: minX, MaxX: maxX, MinZ: minZ, MaxZ: maxZ}
	if !g.IsValid() {
		return Geometry{}, errors.New("geometry min must be lower than max").
			WithType(ErrTypeInvalidGeometry).
			WithTag("min_x", minX).
			WithTag("max_x", maxX).
			WithTag("min_z", minZ).
			WithTag("max_z", maxZ)
	}
	return g, nil
}

// MustGeometry is like NewGeometry but panics on invalid bounds. Meant for
// constants and tests.
func MustGeometry(minX, maxX, minZ, maxZ int) Geometry {
	g, err := NewGeometry(minX, maxX, minZ, maxZ)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Geometry) String() string {
	return fmt.Sprintf("[x %d..%d, z %d..%d]", g.MinX, g.MaxX, g.MinZ, g.MaxZ)
}

func (g Geometry) IsValid() bool {
	return g.MinX < g.MaxX && g.MinZ < g.MaxZ
}

func (g Geometry) Width() int {
	return g.MaxX - g.MinX
}

func (g Geometry) Height() int {
	return g.MaxZ - g.MinZ
}

func (g Geometry) Center() Point {
	return Point{
		X: g.MinX + g.Width()/2,
		Z: g.MinZ + g.Height()/2,
	}
}

func (g Geometry) Contains(p Point) bool {
	return p.X >= g.MinX && p.X < g.MaxX &&
		p.Z >= g.MinZ && p.Z < g.MaxZ
}

// ContainsInclusive is Contains with the max edges included.
func (g Geometry) ContainsInclusive(p Point) bool {
	return p.X >= g.MinX && p.X <= g.MaxX &&
		p.Z >= g.MinZ && p.Z <= g.MaxZ
}

// ContainsWithMargin reports whether p lies inside g grown by margin on every
// side.
func (g Geometry) ContainsWithMargin(p Point, margin int) bool {
	return p.X >= g.MinX-margin && p.X < g.MaxX+margin &&
		p.Z >= g.MinZ-margin && p.Z < g.MaxZ+margin
}

func (g Geometry) ContainsGeometry(other Geometry) bool {
	return other.MinX >= g.MinX && other.MaxX <= g.MaxX &&
		other.MinZ >= g.MinZ && other.MaxZ <= g.MaxZ
}

func (g Geometry) Overlaps(other Geometry) bool {
	if g.MinX >= other.MaxX || g.MaxX <= other.MinX {
		return false
	}
	if g.MinZ >= other.MaxZ || g.MaxZ <= other.MinZ {
		return false
	}
	return true
}

// Intersection returns the area shared by g and other. False is returned
// when they do not overlap.
func (g Geometry) Intersection(other Geometry) (Geometry, bool) {
	if !g.Overlaps(other) {
		return Geometry{}, false
	}

	return Geometry{
		MinX: max(g.MinX, other.MinX),
		MaxX: min(g.MaxX, other.MaxX),
		MinZ: max(g.MinZ, other.MinZ),
		MaxZ: min(g.MaxZ, other.MaxZ),
	}, true
}

// Divide splits g into four quadrants ordered NW, NE, SW, SE, where north is
// the low Z half and west the low X half.
func (g Geometry) Divide() [4]Geometry {
	midX := g.MinX + g.Width()/2
	midZ := g.MinZ + g.Height()/2

	return [4]Geometry{
		{MinX: g.MinX, MaxX: midX, MinZ: g.MinZ, MaxZ: midZ},
		{MinX: midX, MaxX: g.MaxX, MinZ: g.MinZ, MaxZ: midZ},
		{MinX: g.MinX, MaxX: midX, MinZ: midZ, MaxZ: g.MaxZ},
		{MinX: midX, MaxX: g.MaxX, MinZ: midZ, MaxZ: g.MaxZ},
	}
}

// CanDivide reports whether Divide would produce four valid quadrants.
func (g Geometry) CanDivide() bool {
	return g.Width() >= 2 && g.Height() >= 2
}

// Corners returns the corners ordered NW, NE, SW, SE.
func (g Geometry) Corners() [4]Point {
	return [4]Point{
		{X: g.MinX, Z: g.MinZ},
		{X: g.MaxX, Z: g.MinZ},
		{X: g.MinX, Z: g.MaxZ},
		{X: g.MaxX, Z: g.MaxZ},
	}
}

// DistanceTo returns 0 when p is inside g, the distance to the nearest edge
// when p faces an edge and the distance to the nearest corner otherwise.
func (g Geometry) DistanceTo(p Point) float64 {
	inX := p.X >= g.MinX && p.X <= g.MaxX
	inZ := p.Z >= g.MinZ && p.Z <= g.MaxZ

	switch {
	case inX && inZ:
		return 0

	case inX:
		if p.Z < g.MinZ {
			return float64(g.MinZ - p.Z)
		}
		return float64(p.Z - g.MaxZ)

	case inZ:
		if p.X < g.MinX {
			return float64(g.MinX - p.X)
		}
		return float64(p.X - g.MaxX)
	}

	nearest := math.Inf(1)
	for _, c := range g.Corners() {
		nearest = math.Min(nearest, Distance(p, c))
	}
	return nearest
}

// OverlapsCircle reports whether the circle of the given radius around center
// touches g.
func (g Geometry) OverlapsCircle(center Point, radius int) bool {
	return g.DistanceTo(center) <= float64(radius)
}

// BoundingRadius is the radius of the circle through the corners of g.
func (g Geometry) BoundingRadius() float64 {
	return math.Hypot(float64(g.Width()), float64(g.Height())) / 2
}
