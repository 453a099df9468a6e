package quadtree

import (
	"math"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
)

// NodeType tells whether the tree instance has authority on the area covered
// by a node.
type NodeType int

const (
	NodeTypeLocal NodeType = iota
	NodeTypeRemote
	NodeTypeMixed
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeLocal:
		return "local"
	case NodeTypeRemote:
		return "remote"
	case NodeTypeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Node is a node of the quadtree. A node is a leaf until it is divided, then
// it has exactly four children and stops holding elements.
//
// Structural changes happen with the tree lock held. The node lock protects
// the node sets for readers that do not hold the tree lock. Node locks are
// never nested.
type Node struct {
	tree     *QuadTree
	parent   *Node
	geometry geometry.Geometry
	depth    int

	mutex                  sync.RWMutex
	nodeType               NodeType
	children               []*Node
	elements               elementSet
	perceivers             perceiverSet
	perceiverExtentObjects elementSet
	regions                []*Region
}

func newNode(tree *QuadTree, parent *Node, g geometry.Geometry, nodeType NodeType) *Node {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}

	return &Node{
		tree:       tree,
		parent:     parent,
		geometry:   g,
		depth:      depth,
		nodeType:   nodeType,
		elements:   make(elementSet),
		perceivers: make(perceiverSet),
	}
}

func (n *Node) Geometry() geometry.Geometry {
	return n.geometry
}

func (n *Node) Depth() int {
	return n.depth
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) NodeType() NodeType {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.nodeType
}

func (n *Node) IsLeaf() bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.children == nil
}

func (n *Node) Children() []*Node {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	if n.children == nil {
		return nil
	}

	children := make([]*Node, len(n.children))
	copy(children, n.children)
	return children
}

func (n *Node) Elements() []Element {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.elements.slice()
}

func (n *Node) ElementCount() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return len(n.elements)
}

func (n *Node) HasElement(e Element) bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.elements.has(e)
}

func (n *Node) Perceivers() []Perceiver {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	if len(n.perceivers) == 0 {
		return nil
	}

	perceivers := make([]Perceiver, 0, len(n.perceivers))
	for p := range n.perceivers {
		perceivers = append(perceivers, p)
	}
	return perceivers
}

func (n *Node) PerceiverExtentObjects() []Element {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.perceiverExtentObjects.slice()
}

func (n *Node) Regions() []*Region {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	if len(n.regions) == 0 {
		return nil
	}

	regions := make([]*Region, len(n.regions))
	copy(regions, n.regions)
	return regions
}

// AddElement inserts e in the node elements. Perceiver bookkeeping is left to
// the caller.
func (n *Node) AddElement(e Element) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.elements.add(e)
}

// RemoveElement removes e from the node elements and reports whether it was
// there.
func (n *Node) RemoveElement(e Element) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.elements.remove(e)
}

func (n *Node) addPerceiver(p Perceiver) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.perceivers[p] = struct{}{}
}

func (n *Node) removePerceiver(p Perceiver) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	delete(n.perceivers, p)
}

func (n *Node) hasExtentObject(e Element) bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return n.perceiverExtentObjects.has(e)
}

func (n *Node) removeExtentObject(e Element) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.perceiverExtentObjects.remove(e)
}

// DistanceTo returns the distance between p and the node geometry, 0 when p
// is inside.
func (n *Node) DistanceTo(p geometry.Point) float64 {
	return n.geometry.DistanceTo(p)
}

// whichChild returns the child containing p. Points on the max edges of the
// tree are not contained by any child; the nearest one is returned.
func (n *Node) whichChild(p geometry.Point) *Node {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return nearestChild(n.children, p)
}

func nearestChild(children []*Node, p geometry.Point) *Node {
	if len(children) == 0 {
		return nil
	}

	nearest := children[0]
	nearestDistance := math.Inf(1)
	for _, c := range children {
		if c.geometry.Contains(p) {
			return c
		}

		if d := c.geometry.DistanceTo(p); d < nearestDistance {
			nearest = c
			nearestDistance = d
		}
	}
	return nearest
}

// addPerceiverExtentObject makes elem visible from every leaf closer to loc
// than radius. Leaves gaining the object are appended to added.
func (n *Node) addPerceiverExtentObject(elem Element, loc geometry.Point, radius int, added *[]*Node) {
	if n.DistanceTo(loc) >= float64(radius) {
		return
	}

	n.mutex.Lock()
	if n.children == nil {
		if n.perceiverExtentObjects == nil {
			n.perceiverExtentObjects = make(elementSet)
		}
		if n.perceiverExtentObjects.add(elem) && added != nil {
			*added = append(*added, n)
		}
		n.mutex.Unlock()
		return
	}
	children := n.children
	n.mutex.Unlock()

	for _, c := range children {
		c.addPerceiverExtentObject(elem, loc, radius, added)
	}
}

// GetElements returns the elements of every leaf closer to loc than radius,
// including the objects visible from those leaves through their extent.
func (n *Node) GetElements(loc geometry.Point, radius int) []Element {
	result := make(elementSet)
	n.getElements(loc, radius, result)
	return result.slice()
}

func (n *Node) getElements(loc geometry.Point, radius int, result elementSet) {
	if n.DistanceTo(loc) >= float64(radius) {
		return
	}

	n.mutex.RLock()
	if n.children == nil {
		for e := range n.elements {
			result[e] = struct{}{}
		}
		for e := range n.perceiverExtentObjects {
			result[e] = struct{}{}
		}
		n.mutex.RUnlock()
		return
	}
	children := n.children
	n.mutex.RUnlock()

	for _, c := range children {
		c.getElements(loc, radius, result)
	}
}

// GetElementsBetween returns the elements that may lie on the segment p1-p2.
// The result can contain false positives but never misses an element whose
// body touches the segment.
func (n *Node) GetElementsBetween(p1, p2 geometry.Point) []Element {
	result := make(elementSet)
	n.getElementsBetween(p1, p2, result)
	return result.slice()
}

func (n *Node) getElementsBetween(p1, p2 geometry.Point, result elementSet) {
	if !n.segmentIntersectsNode(p1, p2) {
		return
	}

	n.mutex.RLock()
	if n.children == nil {
		candidates := n.elements.slice()
		n.mutex.RUnlock()

		for _, e := range candidates {
			loc, ok := e.CurrentLoc()
			if !ok {
				continue
			}
			if geometry.SegmentCloserThanDistance(p1, p2, loc, float64(e.ObjectRadius())) {
				result[e] = struct{}{}
			}
		}
		return
	}
	children := n.children
	n.mutex.RUnlock()

	for _, c := range children {
		c.getElementsBetween(p1, p2, result)
	}
}

// segmentIntersectsNode tests the segment against the circle around the node
// geometry.
func (n *Node) segmentIntersectsNode(p1, p2 geometry.Point) bool {
	return geometry.SegmentIntersectsCircle(p1, p2, n.geometry.Center(), n.geometry.BoundingRadius())
}

func (n *Node) addRegion(r *Region) {
	if !r.Boundary.Intersects(n.geometry) {
		return
	}

	n.mutex.Lock()
	if n.children == nil {
		n.regions = append(n.regions, r)
		n.mutex.Unlock()
		return
	}
	children := n.children
	n.mutex.Unlock()

	for _, c := range children {
		c.addRegion(r)
	}
}

func (n *Node) getRegionByLoc(loc geometry.Point) []*Region {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	var regions []*Region
	for _, r := range n.regions {
		if r.Contains(loc) {
			regions = append(regions, r)
		}
	}
	return regions
}

// divide turns the leaf into an internal node with four children. Elements,
// extent objects, perceivers and regions are handed to the children. Must be
// called with the tree lock held.
func (n *Node) divide(nf *NewsAndFrees) error {
	n.mutex.Lock()
	if n.children != nil {
		n.mutex.Unlock()
		return errors.New("dividing a node that is not a leaf").
			WithType(ErrTypeInvariantViolation).
			WithTag("geometry", n.geometry.String()).
			WithTag("depth", n.depth)
	}

	children := make([]*Node, 4)
	for i, g := range n.geometry.Divide() {
		children[i] = newNode(n.tree, n, g, n.tree.childNodeType(n.nodeType, g))
	}

	for e := range n.elements {
		child := n.childForElement(children, e)
		child.elements.add(e)
		e.SetQuadNode(child)
	}

	for _, r := range n.regions {
		for _, c := range children {
			if r.Boundary.Intersects(c.geometry) {
				c.regions = append(c.regions, r)
			}
		}
	}

	extentObjects := n.perceiverExtentObjects
	perceivers := n.perceivers

	n.children = children
	n.elements = make(elementSet)
	n.perceiverExtentObjects = nil
	n.perceivers = make(perceiverSet)
	n.regions = nil
	n.mutex.Unlock()

	for e := range extentObjects {
		reg, ok := n.tree.extents[e]
		if !ok {
			continue
		}
		delete(reg.nodes, n)

		var added []*Node
		for _, c := range children {
			c.addPerceiverExtentObject(e, reg.loc, reg.radius, &added)
		}
		for _, c := range added {
			reg.nodes[c] = struct{}{}
		}
	}

	for p := range perceivers {
		p.RemoveQuadTreeNode(n)

		var detached []*Node
		for _, c := range children {
			if p.Overlaps(c.geometry) {
				c.addPerceiver(p)
				p.AddQuadTreeNode(c)
			} else {
				detached = append(detached, c)
			}
		}

		attached := p.QuadTreeNodes()
		for _, c := range detached {
			for _, e := range c.Elements() {
				if !stillPerceivable(e, attached) {
					nf.noteFreedElement(p, e)
				}
			}
			for _, e := range c.PerceiverExtentObjects() {
				if !stillPerceivable(e, attached) {
					nf.noteFreedElement(p, e)
				}
			}
		}
	}

	instrumentDivide(n.tree.name)
	logs.WithTag("tree", n.tree.name).
		WithTag("geometry", n.geometry.String()).
		WithTag("depth", n.depth).
		Debug("quadtree node divided")
	return nil
}

// childForElement returns the child containing the element location. An
// element whose location lies in no child is handed to the nearest one so it
// keeps exactly one owner.
func (n *Node) childForElement(children []*Node, e Element) *Node {
	loc, ok := e.CurrentLoc()
	if !ok {
		logs.WithTag("tree", n.tree.name).
			WithTag("element_id", e.ID()).
			WithTag("geometry", n.geometry.String()).
			Warn(errors.New("element without location found while dividing node"))
		return children[0]
	}

	for _, c := range children {
		if c.geometry.Contains(loc) {
			return c
		}
	}

	if !n.geometry.ContainsWithMargin(loc, int(n.tree.Hysteresis())) && !n.tree.root.geometry.ContainsInclusive(loc) {
		logs.WithTag("tree", n.tree.name).
			WithTag("element_id", e.ID()).
			WithTag("location", loc.String()).
			WithTag("geometry", n.geometry.String()).
			Warn(errors.New("element location is in no child of divided node"))
	}
	return nearestChild(children, loc)
}

// stillPerceivable reports whether e is held by, or visible through the
// extent of, one of the given leaves.
func stillPerceivable(e Element, leaves []*Node) bool {
	for _, l := range leaves {
		if e.QuadNode() == l || l.hasExtentObject(e) {
			return true
		}
	}
	return false
}

// collectOverlappingLeaves adds every leaf overlapped by p to result.
func (n *Node) collectOverlappingLeaves(p Perceiver, result nodeSet) {
	if !p.Overlaps(n.geometry) {
		return
	}

	n.mutex.RLock()
	children := n.children
	n.mutex.RUnlock()

	if children == nil {
		result[n] = struct{}{}
		return
	}

	for _, c := range children {
		c.collectOverlappingLeaves(p, result)
	}
}

// walk visits n and its descendants depth first until fn returns false.
func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}

	for _, c := range n.Children() {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
