package quadtree

import "github.com/multiversemmo/MultiversePlatform-sub002/geometry"

// Region is a named polygonal area used for environment effects such as fog,
// lighting or sound. Regions are attached to every leaf they overlap.
type Region struct {
	Name       string
	Priority   int
	Boundary   geometry.Boundary
	Properties map[string]string
}

func NewRegion(name string, priority int, boundary geometry.Boundary) *Region {
	return &Region{
		Name:       name,
		Priority:   priority,
		Boundary:   boundary,
		Properties: make(map[string]string),
	}
}

func (r *Region) Contains(p geometry.Point) bool {
	return r.Boundary.Contains(p)
}

func (r *Region) Property(key string) (string, bool) {
	v, ok := r.Properties[key]
	return v, ok
}
