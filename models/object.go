package models

import (
	"sync"

	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
)

// WorldObject is an object living in a world: a player, a mob or a static
// structure. It is indexed by location in the world quadtree.
type WorldObject struct {
	Kind string

	id uint64

	mutex            sync.RWMutex
	loc              geometry.Point
	hasLoc           bool
	perceptionRadius int
	objectRadius     int
	perceiver        quadtree.Perceiver
	node             *quadtree.Node
}

func NewWorldObject(id uint64, kind string, loc geometry.Point) *WorldObject {
	return &WorldObject{
		id:     id,
		Kind:   kind,
		loc:    loc,
		hasLoc: true,
	}
}

// SetLoc sets the object location. The world quadtree is not updated, use
// World.Move for that.
func (o *WorldObject) SetLoc(v geometry.Point) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.loc = v
	o.hasLoc = true
}

// Despawn clears the object location.
func (o *WorldObject) Despawn() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.hasLoc = false
}

func (o *WorldObject) SetPerceptionRadius(v int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.perceptionRadius = v
}

func (o *WorldObject) SetObjectRadius(v int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.objectRadius = v
}

// AttachPerceiver makes the object perceive what is within radius. It must be
// called before the object is spawned.
func (o *WorldObject) AttachPerceiver(radius int) *quadtree.MobilePerceiver {
	p := quadtree.NewMobilePerceiver(o, radius)

	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.perceiver = p
	return p
}

func (o *WorldObject) Loc() (geometry.Point, bool) {
	return o.CurrentLoc()
}

func (o *WorldObject) CurrentLoc() (geometry.Point, bool) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.loc, o.hasLoc
}

func (o *WorldObject) PerceptionRadius() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.perceptionRadius
}

func (o *WorldObject) ObjectRadius() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.objectRadius
}

func (o *WorldObject) Perceiver() quadtree.Perceiver {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.perceiver
}

func (o *WorldObject) QuadNode() *quadtree.Node {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.node
}

func (o *WorldObject) SetQuadNode(n *quadtree.Node) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.node = n
}

func (o *WorldObject) ID() uint64 {
	return o.id
}

// ObjectView is the JSON representation of a world object.
type ObjectView struct {
	ID     uint64 `json:"id"`
	Kind   string `json:"kind"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	Radius int    `json:"radius,omitempty"`
}

func (o *WorldObject) View() ObjectView {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return ObjectView{
		ID:     o.id,
		Kind:   o.Kind,
		X:      o.loc.X,
		Y:      o.loc.Y,
		Z:      o.loc.Z,
		Radius: o.objectRadius,
	}
}

func ObjectsToViews(objects []*WorldObject) []ObjectView {
	views := make([]ObjectView, len(objects))
	for i, o := range objects {
		views[i] = o.View()
	}
	return views
}
