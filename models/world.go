package models

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
)

const (
	ErrTypeSpawnRefused     = "world-spawn-refused"
	ErrTypeObjectNotInWorld = "world-object-not-in-world"
)

// World holds the objects of a game world and the quadtree indexing them.
type World struct {
	ID string

	tree *quadtree.QuadTree

	objectIDs   SequentialIDGenerator
	objectMutex sync.RWMutex
	objects     map[uint64]*WorldObject

	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameTicker     *time.Ticker
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   map[uint32]func()
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

func NewWorld(tree *quadtree.QuadTree, frameDuration time.Duration) *World {
	return &World{
		ID:             uuid.New().String(),
		tree:           tree,
		objects:        make(map[uint64]*WorldObject),
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
		frameHandlers:  make(map[uint32]func()),
	}
}

func (w *World) Tree() *quadtree.QuadTree {
	return w.tree
}

func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.frameTicker.Stop()
		w.closeFrameChan <- struct{}{}
	})
}

func (w *World) NewObjectID() uint64 {
	return uint64(w.objectIDs.New())
}

// Spawn adds the object to the world. An error is returned when the object
// location is outside the world or in an area owned by another server.
func (w *World) Spawn(o *WorldObject) error {
	node, err := w.tree.AddElement(o)
	if err != nil {
		return errors.New("spawning object failed").
			WithTag("object_id", o.ID()).
			Wrap(err)
	}

	if node == nil {
		loc, _ := o.CurrentLoc()
		return errors.New("object location is not handled by this world").
			WithType(ErrTypeSpawnRefused).
			WithTag("object_id", o.ID()).
			WithTag("location", loc.String())
	}

	w.objectMutex.Lock()
	w.objects[o.ID()] = o
	count := len(w.objects)
	w.objectMutex.Unlock()

	instrumentWorldObjectGauge(w.ID, count)
	logs.WithTag("world_id", w.ID).
		WithTag("object_id", o.ID()).
		WithTag("kind", o.Kind).
		Debug("object spawned")
	return nil
}

// Despawn removes the object from the world.
func (w *World) Despawn(o *WorldObject) error {
	_, err := w.tree.RemoveElement(o)
	o.Despawn()
	w.forget(o)

	if err != nil {
		return errors.New("despawning object failed").
			WithTag("object_id", o.ID()).
			Wrap(err)
	}

	logs.WithTag("world_id", w.ID).
		WithTag("object_id", o.ID()).
		Debug("object despawned")
	return nil
}

func (w *World) forget(o *WorldObject) {
	w.objectMutex.Lock()
	if _, ok := w.objects[o.ID()]; ok {
		delete(w.objects, o.ID())
		w.objectIDs.Reuse(uint32(o.ID()))
	}
	count := len(w.objects)
	w.objectMutex.Unlock()

	instrumentWorldObjectGauge(w.ID, count)
}

// Move moves the object to loc. An object moved out of the world, or to an
// area owned by another server, is removed from the world.
func (w *World) Move(o *WorldObject, loc geometry.Point) error {
	if _, ok := w.ObjectByID(o.ID()); !ok {
		return errors.New("object is not in world").
			WithType(ErrTypeObjectNotInWorld).
			WithTag("object_id", o.ID())
	}

	o.SetLoc(loc)

	err := w.tree.UpdateElement(o, loc)
	switch {
	case err == nil:
		return nil

	case errors.IsType(err, quadtree.ErrTypeOutOfBounds),
		errors.IsType(err, quadtree.ErrTypeRemoteLocation):
		logs.WithTag("world_id", w.ID).
			WithTag("object_id", o.ID()).
			WithTag("location", loc.String()).
			Warn(err)
		w.forget(o)
		return err

	default:
		return errors.New("moving object failed").
			WithTag("object_id", o.ID()).
			Wrap(err)
	}
}

func (w *World) ObjectByID(id uint64) (*WorldObject, bool) {
	w.objectMutex.RLock()
	defer w.objectMutex.RUnlock()

	o, ok := w.objects[id]
	return o, ok
}

func (w *World) Objects() []*WorldObject {
	w.objectMutex.RLock()
	defer w.objectMutex.RUnlock()

	objects := make([]*WorldObject, 0, len(w.objects))
	for _, o := range w.objects {
		objects = append(objects, o)
	}
	return objects
}

func (w *World) ObjectCount() int {
	w.objectMutex.RLock()
	defer w.objectMutex.RUnlock()

	return len(w.objects)
}

// ObjectsNear returns the objects close to loc, based on the quadtree leaves.
func (w *World) ObjectsNear(loc geometry.Point, radius int) []*WorldObject {
	return toObjects(w.tree.GetElements(loc, radius))
}

func (w *World) HandleFrame(h func()) (cancel func()) {
	w.frameMutex.Lock()
	defer w.frameMutex.Unlock()

	id := w.frameHandlerIDs.New()
	w.frameHandlers[id] = h

	return func() {
		w.frameMutex.Lock()
		defer w.frameMutex.Unlock()

		delete(w.frameHandlers, id)
		w.frameHandlerIDs.Reuse(id)
	}
}

// StartDispatchFrames calls the frame handlers on every frame until the world
// is closed.
func (w *World) StartDispatchFrames() {
	w.startFrameOnce.Do(func() {
		for {
			select {
			case <-w.closeFrameChan:
				return

			case <-w.frameTicker.C:
				w.frameMutex.RLock()
				for _, h := range w.frameHandlers {
					h()
				}
				w.frameMutex.RUnlock()
			}
		}
	})
}

func toObjects(elements []quadtree.Element) []*WorldObject {
	objects := make([]*WorldObject, 0, len(elements))
	for _, e := range elements {
		if o, ok := e.(*WorldObject); ok {
			objects = append(objects, o)
		}
	}
	return objects
}
