package quadtree

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
)

const (
	DefaultMaxObjects = 10
	DefaultMaxDepth   = 20
)

// Option configures a QuadTree.
type Option func(*QuadTree)

// WithName sets the name used to label logs and metrics.
func WithName(name string) Option {
	return func(t *QuadTree) {
		t.name = name
	}
}

// WithHysteresis sets the padding an element can move past its leaf edges
// before being moved to another leaf.
func WithHysteresis(v int) Option {
	return func(t *QuadTree) {
		t.hysteresis.Store(int64(v))
	}
}

// WithExtentPerceivers enables extent based perception: elements with a
// perception radius are visible from every leaf within that radius.
func WithExtentPerceivers(v bool) Option {
	return func(t *QuadTree) {
		t.supportsExtentBasedPerceiver = v
	}
}

func WithMaxObjects(v int) Option {
	return func(t *QuadTree) {
		t.maxObjects.Store(int64(v))
	}
}

func WithMaxDepth(v int) Option {
	return func(t *QuadTree) {
		t.maxDepth.Store(int64(v))
	}
}

type extentRegistration struct {
	loc    geometry.Point
	radius int
	nodes  nodeSet
}

// QuadTree is a spatial index over the ground plane that tracks which
// perceivers can see which elements.
//
// Structural operations hold the tree lock and only record notifications.
// Notifications are dispatched once the lock is released.
type QuadTree struct {
	name                         string
	uuid                         string
	supportsExtentBasedPerceiver bool

	maxObjects atomic.Int64
	maxDepth   atomic.Int64
	hysteresis atomic.Int64

	mutex           sync.Mutex
	root            *Node
	localGeometry   geometry.Geometry
	hasLocal        bool
	fixedPerceivers map[*FixedPerceiver]struct{}
	extents         map[Element]*extentRegistration
	elementCount    int
}

// New creates a tree covering g.
func New(g geometry.Geometry, options ...Option) *QuadTree {
	t := &QuadTree{
		name:            "quadtree",
		uuid:            uuid.New().String(),
		fixedPerceivers: make(map[*FixedPerceiver]struct{}),
		extents:         make(map[Element]*extentRegistration),
	}
	t.maxObjects.Store(DefaultMaxObjects)
	t.maxDepth.Store(DefaultMaxDepth)

	for _, o := range options {
		o(t)
	}

	t.root = newNode(t, nil, g, NodeTypeLocal)
	t.localGeometry = g
	return t
}

func (t *QuadTree) Name() string {
	return t.name
}

func (t *QuadTree) UUID() string {
	return t.uuid
}

func (t *QuadTree) Root() *Node {
	return t.root
}

func (t *QuadTree) Geometry() geometry.Geometry {
	return t.root.geometry
}

func (t *QuadTree) SupportsExtentBasedPerceiver() bool {
	return t.supportsExtentBasedPerceiver
}

func (t *QuadTree) MaxObjects() int {
	return int(t.maxObjects.Load())
}

func (t *QuadTree) MaxDepth() int {
	return int(t.maxDepth.Load())
}

func (t *QuadTree) Hysteresis() int {
	return int(t.hysteresis.Load())
}

// SetMaxObjects sets the element count that triggers a leaf division. It can
// be changed while the tree is in use.
func (t *QuadTree) SetMaxObjects(v int) {
	old := t.maxObjects.Swap(int64(v))
	t.logConfigChange("max_objects", old, v)
}

func (t *QuadTree) SetMaxDepth(v int) {
	old := t.maxDepth.Swap(int64(v))
	t.logConfigChange("max_depth", old, v)
}

func (t *QuadTree) SetHysteresis(v int) {
	old := t.hysteresis.Swap(int64(v))
	t.logConfigChange("hysteresis", old, v)
}

func (t *QuadTree) logConfigChange(key string, old int64, v int) {
	if old == int64(v) {
		return
	}

	logs.WithTag("tree", t.name).
		WithTag("setting", key).
		WithTag("old", old).
		WithTag("new", v).
		Info("quadtree setting changed")
}

// ElementCount returns the number of elements in the tree.
func (t *QuadTree) ElementCount() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.elementCount
}

func (t *QuadTree) lock() {
	start := time.Now()
	t.mutex.Lock()
	instrumentLockWait(t.name, start)
}

func (t *QuadTree) unlock() {
	t.mutex.Unlock()
}

// AddElement inserts elem in the leaf containing its location. A nil node
// without error is returned when the location is outside the tree or in a
// remote area.
func (t *QuadTree) AddElement(elem Element) (*Node, error) {
	node, _, err := t.AddElementAndCount(elem)
	return node, err
}

// AddElementAndCount is like AddElement and also returns the number of
// elements the perceiver owned by elem started to perceive.
func (t *QuadTree) AddElementAndCount(elem Element) (*Node, int, error) {
	defer instrumentOperation(t.name, "add_element", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	node, err := t.addElementInternal(elem, nf)
	t.unlock()

	count := nf.ProcessNewsAndFreesOf(elem.Perceiver())
	return node, count, err
}

func (t *QuadTree) addElementInternal(elem Element, nf *NewsAndFrees) (*Node, error) {
	loc, ok := elem.Loc()
	if !ok {
		return nil, t.invariantViolation(errors.New("adding element without location").
			WithTag("element_id", elem.ID()))
	}

	if elem.QuadNode() != nil {
		return nil, t.invariantViolation(errors.New("adding element that is already in a tree").
			WithTag("element_id", elem.ID()))
	}

	leaf, err := t.placementLeaf(loc, nf)
	if err != nil {
		t.warnPlacement(elem, loc, err)
		return nil, nil
	}

	leaf.AddElement(elem)
	elem.SetQuadNode(leaf)
	t.elementCount++
	instrumentElementGauge(t.name, t.elementCount)

	if !leaf.geometry.ContainsInclusive(loc) {
		return leaf, t.invariantViolation(errors.New("new leaf does not contain added element").
			WithTag("element_id", elem.ID()).
			WithTag("location", loc.String()).
			WithTag("geometry", leaf.geometry.String()))
	}

	for _, p := range leaf.Perceivers() {
		if p.ShouldNotifyNewElement(elem) {
			nf.noteNewElement(p, elem)
		}
	}

	t.registerExtent(elem, loc, nf)

	if p := elem.Perceiver(); p != nil {
		t.updatePerceiverInternal(p, nf)
	}

	return leaf, nil
}

// placementLeaf returns the leaf that should receive an element at loc,
// dividing it first when it is full.
func (t *QuadTree) placementLeaf(loc geometry.Point, nf *NewsAndFrees) (*Node, error) {
	leaf := t.findLeaf(loc)
	if leaf == nil {
		instrumentOutOfBounds(t.name)
		return nil, errors.New("location is outside the tree").
			WithType(ErrTypeOutOfBounds).
			WithTag("location", loc.String()).
			WithTag("geometry", t.root.geometry.String())
	}

	for leaf.ElementCount() >= t.MaxObjects() &&
		leaf.depth < t.MaxDepth() &&
		leaf.geometry.CanDivide() {
		if err := leaf.divide(nf); err != nil {
			return nil, t.invariantViolation(err)
		}
		leaf = leaf.whichChild(loc)
	}

	if t.isRemote(leaf, loc) {
		return nil, errors.New("location is in a remote area").
			WithType(ErrTypeRemoteLocation).
			WithTag("location", loc.String()).
			WithTag("geometry", leaf.geometry.String())
	}

	return leaf, nil
}

func (t *QuadTree) warnPlacement(elem Element, loc geometry.Point, err error) {
	logs.WithTag("tree", t.name).
		WithTag("element_id", elem.ID()).
		WithTag("location", loc.String()).
		Warn(err)
}

// findLeaf descends from the root to the leaf containing loc. Points on the
// max edges of the tree belong to the nearest leaf.
func (t *QuadTree) findLeaf(loc geometry.Point) *Node {
	if !t.root.geometry.ContainsInclusive(loc) {
		return nil
	}

	n := t.root
	for {
		child := n.whichChild(loc)
		if child == nil {
			return n
		}
		n = child
	}
}

// RemoveElement removes elem from the tree. Perceivers that saw elem are told
// it is gone. Removing an element that is not in the tree returns false.
func (t *QuadTree) RemoveElement(elem Element) (bool, error) {
	defer instrumentOperation(t.name, "remove_element", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	removed, err := t.removeElementInternal(elem, nf)
	t.unlock()

	nf.ProcessNewsAndFrees(0)
	return removed, err
}

func (t *QuadTree) removeElementInternal(elem Element, nf *NewsAndFrees) (bool, error) {
	node := elem.QuadNode()
	if node == nil || node.tree != t {
		return false, nil
	}

	candidates := t.candidatePerceivers(elem)

	if !node.RemoveElement(elem) {
		return false, t.invariantViolation(errors.New("element is not in the node it claims").
			WithTag("element_id", elem.ID()).
			WithTag("geometry", node.geometry.String()))
	}
	elem.SetQuadNode(nil)
	t.elementCount--
	instrumentElementGauge(t.name, t.elementCount)

	for p := range candidates {
		nf.noteFreedElement(p, elem)
	}
	t.unregisterExtent(elem)

	if p := elem.Perceiver(); p != nil {
		t.detachPerceiver(p, nf)
	}

	if _, ok := elem.CurrentLoc(); !ok {
		return true, t.invariantViolation(errors.New("removed element had no location").
			WithTag("element_id", elem.ID()))
	}
	return true, nil
}

// UpdateElement moves elem to newLoc. The caller sets the element location
// before calling it.
//
// When newLoc is outside the tree or in a remote area, elem is removed and an
// error with ErrTypeOutOfBounds or ErrTypeRemoteLocation is returned.
func (t *QuadTree) UpdateElement(elem Element, newLoc geometry.Point) error {
	_, err := t.UpdateElementAndCount(elem, newLoc)
	return err
}

// UpdateElementAndCount is like UpdateElement and also returns the number of
// news and frees of the perceiver owned by elem.
func (t *QuadTree) UpdateElementAndCount(elem Element, newLoc geometry.Point) (int, error) {
	defer instrumentOperation(t.name, "update_element", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	err := t.updateElementInternal(elem, newLoc, nf)
	t.unlock()

	count := nf.ProcessNewsAndFreesOf(elem.Perceiver())
	return count, err
}

func (t *QuadTree) updateElementInternal(elem Element, newLoc geometry.Point, nf *NewsAndFrees) error {
	if _, ok := elem.CurrentLoc(); !ok {
		return t.invariantViolation(errors.New("updating element without location").
			WithTag("element_id", elem.ID()))
	}

	node := elem.QuadNode()
	if node == nil || node.tree != t {
		return t.invariantViolation(errors.New("updating element that is not in the tree").
			WithTag("element_id", elem.ID()))
	}

	if !node.IsLeaf() || !node.HasElement(elem) {
		return t.invariantViolation(errors.New("element is not in the node it claims").
			WithTag("element_id", elem.ID()).
			WithTag("geometry", node.geometry.String()))
	}

	before := t.candidatePerceivers(elem)

	if t.leafKeeps(node, newLoc) {
		t.moveExtent(elem, newLoc, nf)
		t.refineCandidates(elem, before, nf)

		if p := elem.Perceiver(); p != nil && p.ShouldUpdateBasedOnLoc(newLoc) {
			t.updatePerceiverInternal(p, nf)
		}
		return nil
	}

	leaf, err := t.placementLeaf(newLoc, nf)
	if err != nil {
		t.warnPlacement(elem, newLoc, err)
		if _, rerr := t.removeElementInternal(elem, nf); rerr != nil {
			return rerr
		}
		return err
	}

	if !node.RemoveElement(elem) {
		return t.invariantViolation(errors.New("element left its node while moving").
			WithTag("element_id", elem.ID()).
			WithTag("geometry", node.geometry.String()))
	}
	leaf.AddElement(elem)
	elem.SetQuadNode(leaf)

	t.moveExtent(elem, newLoc, nf)
	t.refineCandidates(elem, before, nf)

	if p := elem.Perceiver(); p != nil {
		t.updatePerceiverInternal(p, nf)
	}
	return nil
}

// isRemote reports whether loc, located in leaf, is outside the area this
// tree has authority on. Mixed leaves are not divided up front so the local
// geometry decides for them.
func (t *QuadTree) isRemote(leaf *Node, loc geometry.Point) bool {
	switch leaf.NodeType() {
	case NodeTypeRemote:
		return true
	case NodeTypeMixed:
		return !t.localGeometry.Contains(loc)
	default:
		return false
	}
}

// leafKeeps reports whether elem can stay in leaf when moving to loc.
func (t *QuadTree) leafKeeps(leaf *Node, loc geometry.Point) bool {
	if leaf.NodeType() == NodeTypeMixed && t.isRemote(leaf, loc) {
		return false
	}

	if leaf.geometry.Contains(loc) {
		return true
	}

	if !t.root.geometry.ContainsInclusive(loc) {
		return false
	}

	if t.findLeaf(loc) == leaf {
		return true
	}

	h := t.Hysteresis()
	return h > 0 && leaf.geometry.ContainsWithMargin(loc, h)
}

// candidatePerceivers returns the perceivers attached to the leaf of elem or
// to a leaf elem is visible from through its extent.
func (t *QuadTree) candidatePerceivers(elem Element) perceiverSet {
	candidates := make(perceiverSet)

	if node := elem.QuadNode(); node != nil {
		for _, p := range node.Perceivers() {
			candidates[p] = struct{}{}
		}
	}

	if reg, ok := t.extents[elem]; ok {
		for n := range reg.nodes {
			for _, p := range n.Perceivers() {
				candidates[p] = struct{}{}
			}
		}
	}

	return candidates
}

// refineCandidates notifies perceivers that stopped or started perceiving
// elem since before was computed.
func (t *QuadTree) refineCandidates(elem Element, before perceiverSet, nf *NewsAndFrees) {
	after := t.candidatePerceivers(elem)

	for p := range before {
		if !after.has(p) {
			nf.noteFreedElement(p, elem)
		}
	}

	for p := range after {
		t.refine(p, elem, nf)
	}
}

// refine brings the perceiver view of a candidate element up to date.
func (t *QuadTree) refine(p Perceiver, elem Element, nf *NewsAndFrees) {
	should := p.ShouldNotifyNewElement(elem)
	visible := p.ShouldFreeElement(elem)

	switch {
	case should && !visible:
		nf.noteNewElement(p, elem)
	case !should && visible:
		nf.noteFreedElement(p, elem)
	}
}

func (t *QuadTree) registerExtent(elem Element, loc geometry.Point, nf *NewsAndFrees) {
	radius := elem.PerceptionRadius()
	if !t.supportsExtentBasedPerceiver || radius <= 0 {
		return
	}

	var added []*Node
	t.root.addPerceiverExtentObject(elem, loc, radius, &added)

	reg := &extentRegistration{
		loc:    loc,
		radius: radius,
		nodes:  newNodeSet(added),
	}
	t.extents[elem] = reg

	for _, n := range added {
		for _, p := range n.Perceivers() {
			if p.ShouldNotifyNewElement(elem) {
				nf.noteNewElement(p, elem)
			}
		}
	}
}

func (t *QuadTree) unregisterExtent(elem Element) {
	reg, ok := t.extents[elem]
	if !ok {
		return
	}

	for n := range reg.nodes {
		n.removeExtentObject(elem)
	}
	delete(t.extents, elem)
}

// moveExtent re-registers the extent of a moving element. Perceivers are
// reconciled by the caller.
func (t *QuadTree) moveExtent(elem Element, loc geometry.Point, nf *NewsAndFrees) {
	reg, ok := t.extents[elem]
	if !ok {
		return
	}
	if reg.loc == loc && reg.radius == elem.PerceptionRadius() {
		return
	}

	t.unregisterExtent(elem)

	radius := elem.PerceptionRadius()
	if !t.supportsExtentBasedPerceiver || radius <= 0 {
		return
	}

	var added []*Node
	t.root.addPerceiverExtentObject(elem, loc, radius, &added)
	t.extents[elem] = &extentRegistration{
		loc:    loc,
		radius: radius,
		nodes:  newNodeSet(added),
	}
}

// UpdatePerceiver recomputes the leaves p overlaps and notifies it about the
// elements it gained and lost.
func (t *QuadTree) UpdatePerceiver(p Perceiver) {
	defer instrumentOperation(t.name, "update_perceiver", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	t.updatePerceiverInternal(p, nf)
	t.unlock()

	nf.ProcessNewsAndFrees(0)
}

// updatePerceiverInternal diffs the leaves and extent objects p perceived
// before and after the update. Objects visible through the extent of both
// the old and the new leaves are never freed, so they do not flicker.
func (t *QuadTree) updatePerceiverInternal(p Perceiver, nf *NewsAndFrees) {
	p.base().attach(t)

	oldNodes := newNodeSet(p.QuadTreeNodes())
	newNodes := make(nodeSet)
	t.root.collectOverlappingLeaves(p, newNodes)

	var removedNodes, addedNodes []*Node
	for n := range oldNodes {
		if !newNodes.has(n) {
			removedNodes = append(removedNodes, n)
		}
	}
	for n := range newNodes {
		if !oldNodes.has(n) {
			addedNodes = append(addedNodes, n)
		}
	}

	oldExtent := extentObjectsOf(oldNodes)
	newExtent := extentObjectsOf(newNodes)
	commonExtent := make(elementSet)
	for e := range oldExtent {
		if newExtent.has(e) {
			commonExtent.add(e)
		}
	}

	for _, n := range removedNodes {
		n.removePerceiver(p)
		p.RemoveQuadTreeNode(n)

		for _, e := range n.Elements() {
			if oldExtent.has(e) || newExtent.has(e) {
				continue
			}
			nf.noteFreedElement(p, e)
		}
	}

	for _, n := range addedNodes {
		n.addPerceiver(p)
		p.AddQuadTreeNode(n)

		for _, e := range n.Elements() {
			if oldExtent.has(e) || newExtent.has(e) {
				continue
			}
			if p.ShouldNotifyNewElement(e) {
				nf.noteNewElement(p, e)
			}
		}
	}

	for e := range oldExtent {
		if commonExtent.has(e) || newNodes.has(e.QuadNode()) {
			continue
		}
		nf.noteFreedElement(p, e)
	}

	for e := range newExtent {
		if commonExtent.has(e) {
			continue
		}
		if p.ShouldNotifyNewElement(e) {
			nf.noteNewElement(p, e)
		}
	}

	// Perceivers narrower than their leaves (radius, area) need the retained
	// candidates reevaluated too.
	candidates := newExtent
	for n := range newNodes {
		for _, e := range n.Elements() {
			candidates.add(e)
		}
	}
	for e := range candidates {
		t.refine(p, e, nf)
	}
	for _, e := range p.Visible() {
		if !candidates.has(e) {
			nf.noteFreedElement(p, e)
		}
	}

	p.recordUpdate()
}

func extentObjectsOf(nodes nodeSet) elementSet {
	objects := make(elementSet)
	for n := range nodes {
		for _, e := range n.PerceiverExtentObjects() {
			objects.add(e)
		}
	}
	return objects
}

// detachPerceiver removes p from every leaf and frees everything it saw.
func (t *QuadTree) detachPerceiver(p Perceiver, nf *NewsAndFrees) {
	for _, n := range p.QuadTreeNodes() {
		n.removePerceiver(p)
		p.RemoveQuadTreeNode(n)
	}

	for _, e := range p.Visible() {
		nf.noteFreedElement(p, e)
	}
}

// AddFixedPerceiver registers p and notifies it about what it sees.
func (t *QuadTree) AddFixedPerceiver(p *FixedPerceiver) {
	defer instrumentOperation(t.name, "add_fixed_perceiver", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	t.fixedPerceivers[p] = struct{}{}
	t.updatePerceiverInternal(p, nf)
	instrumentFixedPerceiverGauge(t.name, len(t.fixedPerceivers))
	t.unlock()

	nf.ProcessNewsAndFrees(0)
}

// RemoveFixedPerceiver unregisters p. It is told about every element it
// stops perceiving.
func (t *QuadTree) RemoveFixedPerceiver(p *FixedPerceiver) {
	defer instrumentOperation(t.name, "remove_fixed_perceiver", time.Now())

	nf := newNewsAndFrees(t.name)

	t.lock()
	if _, ok := t.fixedPerceivers[p]; ok {
		delete(t.fixedPerceivers, p)
		t.detachPerceiver(p, nf)
		instrumentFixedPerceiverGauge(t.name, len(t.fixedPerceivers))
	}
	t.unlock()

	nf.ProcessNewsAndFrees(0)
}

func (t *QuadTree) FixedPerceivers() []*FixedPerceiver {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	perceivers := make([]*FixedPerceiver, 0, len(t.fixedPerceivers))
	for p := range t.fixedPerceivers {
		perceivers = append(perceivers, p)
	}
	return perceivers
}

// AddRegion attaches r to every leaf it overlaps.
func (t *QuadTree) AddRegion(r *Region) {
	t.lock()
	defer t.unlock()

	t.root.addRegion(r)
}

// GetRegionsContainingPoint returns the regions containing loc, highest
// priority first.
func (t *QuadTree) GetRegionsContainingPoint(loc geometry.Point) []*Region {
	leaf := t.findLeaf(loc)
	if leaf == nil {
		return nil
	}

	regions := leaf.getRegionByLoc(loc)
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Priority != regions[j].Priority {
			return regions[i].Priority > regions[j].Priority
		}
		return regions[i].Name < regions[j].Name
	})
	return regions
}

// SetLocalGeometry marks the nodes this tree instance has authority on.
// Nodes crossing g are marked mixed and keep their shape. Elements already
// in remote areas are kept, new elements are refused there.
func (t *QuadTree) SetLocalGeometry(g geometry.Geometry) {
	t.lock()
	t.localGeometry = g
	t.hasLocal = true
	t.markNodeTypes(t.root)
	t.unlock()

	logs.WithTag("tree", t.name).
		WithTag("local_geometry", g.String()).
		Info("quadtree local geometry set")
}

func (t *QuadTree) LocalGeometry() geometry.Geometry {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.localGeometry
}

func (t *QuadTree) classify(g geometry.Geometry) NodeType {
	switch {
	case t.localGeometry.ContainsGeometry(g):
		return NodeTypeLocal
	case !t.localGeometry.Overlaps(g):
		return NodeTypeRemote
	default:
		return NodeTypeMixed
	}
}

// childNodeType returns the type of a child of a node of the given type.
func (t *QuadTree) childNodeType(parent NodeType, g geometry.Geometry) NodeType {
	if parent != NodeTypeMixed || !t.hasLocal {
		return parent
	}
	return t.classify(g)
}

func (t *QuadTree) markNodeTypes(n *Node) {
	n.mutex.Lock()
	n.nodeType = t.classify(n.geometry)
	n.mutex.Unlock()

	for _, c := range n.Children() {
		t.markNodeTypes(c)
	}
}

// GetElements returns the elements held by, or visible from, the leaves
// closer to loc than radius.
func (t *QuadTree) GetElements(loc geometry.Point, radius int) []Element {
	return t.root.GetElements(loc, radius)
}

// GetElementsNear is GetElements around the current location of elem.
func (t *QuadTree) GetElementsNear(elem Element, radius int) []Element {
	loc, ok := elem.CurrentLoc()
	if !ok {
		return nil
	}
	return t.GetElements(loc, radius)
}

// GetElementsBetween returns the elements that may intersect the segment
// loc1-loc2.
func (t *QuadTree) GetElementsBetween(loc1, loc2 geometry.Point) []Element {
	return t.root.GetElementsBetween(loc1, loc2)
}

// GetElementPerceivables returns the elements held by, or visible from, the
// leaves the perceiver of elem is attached to.
func (t *QuadTree) GetElementPerceivables(elem Element) []Element {
	p := elem.Perceiver()
	if p == nil {
		return nil
	}

	result := make(elementSet)
	for _, n := range p.QuadTreeNodes() {
		for _, e := range n.Elements() {
			result.add(e)
		}
		for _, e := range n.PerceiverExtentObjects() {
			result.add(e)
		}
	}
	result.remove(elem)
	return result.slice()
}

// Walk visits every node depth first until fn returns false.
func (t *QuadTree) Walk(fn func(*Node) bool) {
	t.root.walk(fn)
}

func (t *QuadTree) invariantViolation(err error) error {
	instrumentInvariantViolation(t.name)

	if !errors.IsType(err, ErrTypeInvariantViolation) {
		err = errors.New("quadtree invariant violated").
			WithType(ErrTypeInvariantViolation).
			Wrap(err)
	}

	logs.WithTag("tree", t.name).Error(err)
	return err
}
