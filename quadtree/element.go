package quadtree

import "github.com/multiversemmo/MultiversePlatform-sub002/geometry"

// Element is anything indexed by location in the tree: mobs, structures,
// players, sound sources.
type Element interface {
	// Returns the element id. Ids must be unique within a tree.
	ID() uint64

	// Returns the element location. The boolean is false when the element
	// has no location anymore, which happens when it left the world.
	Loc() (geometry.Point, bool)

	// Returns the last known location without recomputing it.
	CurrentLoc() (geometry.Point, bool)

	// Returns the radius from which the element can be perceived regardless
	// of the tree leaves. 0 disables extent based perception.
	PerceptionRadius() int

	// Returns the radius of the element body, used by segment queries.
	ObjectRadius() int

	// Returns the perceiver owned by the element, nil when the element does
	// not perceive anything.
	Perceiver() Perceiver

	// Returns the leaf that holds the element. This is a weak reference
	// maintained by the tree.
	QuadNode() *Node

	// Sets the leaf that holds the element.
	SetQuadNode(*Node)
}

type elementSet map[Element]struct{}

func (s elementSet) add(e Element) bool {
	if _, ok := s[e]; ok {
		return false
	}
	s[e] = struct{}{}
	return true
}

func (s elementSet) remove(e Element) bool {
	if _, ok := s[e]; !ok {
		return false
	}
	delete(s, e)
	return true
}

func (s elementSet) has(e Element) bool {
	_, ok := s[e]
	return ok
}

func (s elementSet) slice() []Element {
	if len(s) == 0 {
		return nil
	}

	elements := make([]Element, 0, len(s))
	for e := range s {
		elements = append(elements, e)
	}
	return elements
}

type nodeSet map[*Node]struct{}

func newNodeSet(nodes []*Node) nodeSet {
	s := make(nodeSet, len(nodes))
	for _, n := range nodes {
		s[n] = struct{}{}
	}
	return s
}

func (s nodeSet) has(n *Node) bool {
	_, ok := s[n]
	return ok
}

type perceiverSet map[Perceiver]struct{}

func (s perceiverSet) has(p Perceiver) bool {
	_, ok := s[p]
	return ok
}
