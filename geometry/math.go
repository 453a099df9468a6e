package geometry

import "math"

// Distance is the X/Z distance between a and b.
func Distance(a, b Point) float64 {
	return math.Sqrt(DistanceSquared(a, b))
}

func DistanceSquared(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dz := float64(a.Z - b.Z)
	return dx*dx + dz*dz
}

// SegmentIntersectsCircle solves |p1 + t(p2-p1) - center| = radius for t and
// reports whether a solution range meets the segment, that is t in [0, 1].
// A segment that lies entirely inside the circle intersects it.
func SegmentIntersectsCircle(p1, p2, center Point, radius float64) bool {
	dx := float64(p2.X - p1.X)
	dz := float64(p2.Z - p1.Z)
	fx := float64(p1.X - center.X)
	fz := float64(p1.Z - center.Z)

	a := dx*dx + dz*dz
	b := 2 * (fx*dx + fz*dz)
	c := fx*fx + fz*fz - radius*radius

	if a == 0 {
		return c <= 0
	}

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return false
	}

	root := math.Sqrt(discriminant)
	t1 := (-b - root) / (2 * a)
	t2 := (-b + root) / (2 * a)
	return t1 <= 1 && t2 >= 0
}

// DistanceToSegment returns the distance between p and the closest point of
// the segment p1-p2.
func DistanceToSegment(p1, p2, p Point) float64 {
	dx := float64(p2.X - p1.X)
	dz := float64(p2.Z - p1.Z)

	lengthSquared := dx*dx + dz*dz
	if lengthSquared == 0 {
		return Distance(p1, p)
	}

	t := (float64(p.X-p1.X)*dx + float64(p.Z-p1.Z)*dz) / lengthSquared
	t = math.Max(0, math.Min(1, t))

	cx := float64(p1.X) + t*dx
	cz := float64(p1.Z) + t*dz
	return math.Hypot(float64(p.X)-cx, float64(p.Z)-cz)
}

func SegmentCloserThanDistance(p1, p2, p Point, distance float64) bool {
	return DistanceToSegment(p1, p2, p) <= distance
}
