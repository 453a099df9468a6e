package quadtree

import (
	"sync"

	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
)

// PerceiverCallback is called after the tree lock is released with the
// elements a perceiver started and stopped perceiving. Calls for different
// operations may interleave, handlers must treat news and frees as
// idempotent set operations.
type PerceiverCallback func(p Perceiver, news, frees []Element)

// Perceiver is something that can see elements: a MobilePerceiver bound to a
// moving element or a FixedPerceiver bound to a static area.
type Perceiver interface {
	// Returns the perceiver id. A MobilePerceiver has the id of its owner.
	ID() uint64

	// Reports whether the perceiver shape overlaps g.
	Overlaps(g geometry.Geometry) bool

	// Returns the leaves the perceiver is attached to.
	QuadTreeNodes() []*Node
	AddQuadTreeNode(n *Node)
	RemoveQuadTreeNode(n *Node)

	// Reports whether the owner should be told about e when e becomes a
	// candidate.
	ShouldNotifyNewElement(e Element) bool

	// Reports whether the owner should be told that e is gone.
	ShouldFreeElement(e Element) bool

	// Reports whether moving the perceiver to loc requires recomputing the
	// leaves it overlaps.
	ShouldUpdateBasedOnLoc(loc geometry.Point) bool

	// Dispatches nf to the registered callbacks. When targetID is the
	// perceiver id, the number of news and frees is returned with true.
	ProcessNewsAndFrees(nf *PerceiverNewsAndFrees, targetID uint64) (int, bool)

	// Registers a callback called on ProcessNewsAndFrees.
	RegisterCallback(cb PerceiverCallback)

	// Returns the elements the perceiver has been told about.
	Visible() []Element

	// Reports whether the perceiver has been told about e.
	IsVisible(e Element) bool

	base() *perceiverBase
	recordUpdate()
}

type perceiverBase struct {
	id uint64

	mutex     sync.RWMutex
	tree      *QuadTree
	nodes     nodeSet
	visible   elementSet
	callbacks []PerceiverCallback
}

func (b *perceiverBase) ID() uint64 {
	return b.id
}

func (b *perceiverBase) QuadTreeNodes() []*Node {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	nodes := make([]*Node, 0, len(b.nodes))
	for n := range b.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

func (b *perceiverBase) AddQuadTreeNode(n *Node) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nodes[n] = struct{}{}
}

func (b *perceiverBase) RemoveQuadTreeNode(n *Node) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.nodes, n)
}

func (b *perceiverBase) ShouldFreeElement(e Element) bool {
	return b.IsVisible(e)
}

func (b *perceiverBase) RegisterCallback(cb PerceiverCallback) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.callbacks = append(b.callbacks, cb)
}

func (b *perceiverBase) Visible() []Element {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.visible.slice()
}

func (b *perceiverBase) IsVisible(e Element) bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.visible.has(e)
}

func (b *perceiverBase) base() *perceiverBase {
	return b
}

func (b *perceiverBase) markVisible(e Element) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.visible.add(e)
}

func (b *perceiverBase) markInvisible(e Element) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.visible.remove(e)
}

func (b *perceiverBase) attach(t *QuadTree) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.tree = t
}

func (b *perceiverBase) attachedTree() *QuadTree {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.tree
}

func (b *perceiverBase) dispatch(p Perceiver, nf *PerceiverNewsAndFrees, targetID uint64) (int, bool) {
	b.mutex.RLock()
	callbacks := make([]PerceiverCallback, len(b.callbacks))
	copy(callbacks, b.callbacks)
	b.mutex.RUnlock()

	news := nf.News()
	frees := nf.Frees()
	for _, cb := range callbacks {
		cb(p, news, frees)
	}

	if targetID != 0 && targetID == b.id {
		return len(news) + len(frees), true
	}
	return 0, false
}

// MobilePerceiver perceives what is around a moving element. The tree
// attaches it to every leaf overlapped by the circle of the given radius
// around the owner, then narrows what the owner is told about to the
// elements within reach.
type MobilePerceiver struct {
	perceiverBase

	owner  Element
	radius int

	updateMutex     sync.Mutex
	updateThreshold int
	lastUpdateLoc   geometry.Point
	hasLastUpdate   bool
}

// NewMobilePerceiver creates a perceiver bound to owner. Until
// SetUpdateThreshold is called, the threshold is the hysteresis of the tree
// the owner is added to.
func NewMobilePerceiver(owner Element, radius int) *MobilePerceiver {
	return &MobilePerceiver{
		perceiverBase: perceiverBase{
			id:      owner.ID(),
			nodes:   make(nodeSet),
			visible: make(elementSet),
		},
		owner:           owner,
		radius:          radius,
		updateThreshold: -1,
	}
}

func (p *MobilePerceiver) Owner() Element {
	return p.owner
}

func (p *MobilePerceiver) Radius() int {
	return p.radius
}

// SetUpdateThreshold sets the distance the owner has to move before the
// perceiver leaves are recomputed. A negative value falls back to the tree
// hysteresis.
func (p *MobilePerceiver) SetUpdateThreshold(v int) {
	p.updateMutex.Lock()
	defer p.updateMutex.Unlock()

	p.updateThreshold = v
}

func (p *MobilePerceiver) Overlaps(g geometry.Geometry) bool {
	loc, ok := p.owner.CurrentLoc()
	if !ok {
		return false
	}
	return g.OverlapsCircle(loc, p.radius)
}

func (p *MobilePerceiver) ShouldNotifyNewElement(e Element) bool {
	if e == p.owner {
		return false
	}

	ownerLoc, ok := p.owner.CurrentLoc()
	if !ok {
		return false
	}

	loc, ok := e.CurrentLoc()
	if !ok {
		return false
	}

	reach := max(p.radius, e.PerceptionRadius()) + e.ObjectRadius()
	return geometry.DistanceSquared(ownerLoc, loc) <= float64(reach)*float64(reach)
}

func (p *MobilePerceiver) ShouldUpdateBasedOnLoc(loc geometry.Point) bool {
	p.updateMutex.Lock()
	defer p.updateMutex.Unlock()

	if !p.hasLastUpdate {
		return true
	}

	threshold := p.updateThreshold
	if threshold < 0 {
		threshold = 0
		if t := p.attachedTree(); t != nil {
			threshold = int(t.Hysteresis())
		}
	}

	return geometry.Distance(p.lastUpdateLoc, loc) > float64(threshold)
}

func (p *MobilePerceiver) ProcessNewsAndFrees(nf *PerceiverNewsAndFrees, targetID uint64) (int, bool) {
	return p.dispatch(p, nf, targetID)
}

func (p *MobilePerceiver) recordUpdate() {
	loc, ok := p.owner.CurrentLoc()

	p.updateMutex.Lock()
	defer p.updateMutex.Unlock()

	p.lastUpdateLoc = loc
	p.hasLastUpdate = ok
}

// FixedPerceiver perceives a static area, such as a camera volume or an
// observer watching a zone.
type FixedPerceiver struct {
	perceiverBase

	geometry geometry.Geometry
}

func NewFixedPerceiver(id uint64, g geometry.Geometry) *FixedPerceiver {
	return &FixedPerceiver{
		perceiverBase: perceiverBase{
			id:      id,
			nodes:   make(nodeSet),
			visible: make(elementSet),
		},
		geometry: g,
	}
}

func (p *FixedPerceiver) Geometry() geometry.Geometry {
	return p.geometry
}

func (p *FixedPerceiver) Overlaps(g geometry.Geometry) bool {
	return p.geometry.Overlaps(g)
}

// ShouldNotifyNewElement accepts elements located in the perceiver geometry
// and elements whose perception radius reaches it.
func (p *FixedPerceiver) ShouldNotifyNewElement(e Element) bool {
	loc, ok := e.CurrentLoc()
	if !ok {
		return false
	}

	if p.geometry.Contains(loc) {
		return true
	}

	reach := e.PerceptionRadius() + e.ObjectRadius()
	return reach > 0 && p.geometry.DistanceTo(loc) <= float64(reach)
}

func (p *FixedPerceiver) ShouldUpdateBasedOnLoc(loc geometry.Point) bool {
	return false
}

func (p *FixedPerceiver) ProcessNewsAndFrees(nf *PerceiverNewsAndFrees, targetID uint64) (int, bool) {
	return p.dispatch(p, nf, targetID)
}

func (p *FixedPerceiver) recordUpdate() {
}
