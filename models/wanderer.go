package models

import (
	"math/rand"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
)

// Wanderer moves a group of objects on a random walk, one step per frame.
type Wanderer struct {
	world  *World
	bounds geometry.Geometry
	step   int

	mutex   sync.Mutex
	rand    *rand.Rand
	objects []*WorldObject
}

// NewWanderer spawns count objects at random locations within bounds. Each
// object perceives what is within radius.
func NewWanderer(w *World, bounds geometry.Geometry, count, step, radius int, seed int64) (*Wanderer, error) {
	wanderer := &Wanderer{
		world:  w,
		bounds: bounds,
		step:   step,
		rand:   rand.New(rand.NewSource(seed)),
	}

	for i := 0; i < count; i++ {
		o := NewWorldObject(w.NewObjectID(), "wanderer", wanderer.randomLoc())
		o.SetObjectRadius(1)
		if radius > 0 {
			o.AttachPerceiver(radius)
		}

		if err := w.Spawn(o); err != nil {
			wanderer.Close()
			return nil, err
		}
		wanderer.objects = append(wanderer.objects, o)
	}

	return wanderer, nil
}

func (wd *Wanderer) randomLoc() geometry.Point {
	return geometry.NewPoint(
		wd.bounds.MinX+wd.rand.Intn(wd.bounds.Width()),
		0,
		wd.bounds.MinZ+wd.rand.Intn(wd.bounds.Height()),
	)
}

func (wd *Wanderer) Objects() []*WorldObject {
	wd.mutex.Lock()
	defer wd.mutex.Unlock()

	objects := make([]*WorldObject, len(wd.objects))
	copy(objects, wd.objects)
	return objects
}

// HandleFrame moves every object by at most step on each axis, staying
// within bounds.
func (wd *Wanderer) HandleFrame() {
	wd.mutex.Lock()
	defer wd.mutex.Unlock()

	for _, o := range wd.objects {
		loc, ok := o.CurrentLoc()
		if !ok {
			continue
		}

		loc.X = clamp(loc.X+wd.rand.Intn(2*wd.step+1)-wd.step, wd.bounds.MinX, wd.bounds.MaxX-1)
		loc.Z = clamp(loc.Z+wd.rand.Intn(2*wd.step+1)-wd.step, wd.bounds.MinZ, wd.bounds.MaxZ-1)

		if err := wd.world.Move(o, loc); err != nil {
			logs.WithTag("world_id", wd.world.ID).
				WithTag("object_id", o.ID()).
				Warn(err)
		}
	}
}

// Close despawns the wanderer objects.
func (wd *Wanderer) Close() {
	wd.mutex.Lock()
	defer wd.mutex.Unlock()

	for _, o := range wd.objects {
		if err := wd.world.Despawn(o); err != nil {
			logs.WithTag("world_id", wd.world.ID).
				WithTag("object_id", o.ID()).
				Warn(err)
		}
	}
	wd.objects = nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
