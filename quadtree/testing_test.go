package quadtree

import (
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/segmentio/encoding/json"
)

type testElement struct {
	id               uint64
	perceptionRadius int
	objectRadius     int

	mutex     sync.Mutex
	loc       geometry.Point
	hasLoc    bool
	perceiver Perceiver
	node      *Node
}

func newTestElement(id uint64, x, z int) *testElement {
	return &testElement{
		id:     id,
		loc:    geometry.NewPoint(x, 0, z),
		hasLoc: true,
	}
}

func (e *testElement) ID() uint64 {
	return e.id
}

func (e *testElement) Loc() (geometry.Point, bool) {
	return e.CurrentLoc()
}

func (e *testElement) CurrentLoc() (geometry.Point, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.loc, e.hasLoc
}

func (e *testElement) setLoc(x, z int) geometry.Point {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.loc = geometry.NewPoint(x, 0, z)
	e.hasLoc = true
	return e.loc
}

func (e *testElement) clearLoc() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.hasLoc = false
}

func (e *testElement) PerceptionRadius() int {
	return e.perceptionRadius
}

func (e *testElement) ObjectRadius() int {
	return e.objectRadius
}

func (e *testElement) Perceiver() Perceiver {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.perceiver
}

func (e *testElement) QuadNode() *Node {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.node
}

func (e *testElement) SetQuadNode(n *Node) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.node = n
}

// withPerceiver gives the element a mobile perceiver and returns its
// recorder.
func (e *testElement) withPerceiver(radius int) (*MobilePerceiver, *recorder) {
	p := NewMobilePerceiver(e, radius)
	r := newRecorder()
	p.RegisterCallback(r.callback)

	e.mutex.Lock()
	e.perceiver = p
	e.mutex.Unlock()
	return p, r
}

// recorder records the notifications received by a perceiver.
type recorder struct {
	mutex   sync.Mutex
	news    []uint64
	frees   []uint64
	visible map[uint64]int
}

func newRecorder() *recorder {
	return &recorder{
		visible: make(map[uint64]int),
	}
}

func (r *recorder) callback(p Perceiver, news, frees []Element) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, e := range news {
		r.news = append(r.news, e.ID())
		r.visible[e.ID()]++
	}

	for _, e := range frees {
		r.frees = append(r.frees, e.ID())
		r.visible[e.ID()]--
		if r.visible[e.ID()] == 0 {
			delete(r.visible, e.ID())
		}
	}
}

func (r *recorder) counts() (int, int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.news), len(r.frees)
}

func (r *recorder) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.news = nil
	r.frees = nil
}

func (r *recorder) visibleIDs() map[uint64]int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make(map[uint64]int, len(r.visible))
	for id, c := range r.visible {
		if c != 0 {
			ids[id] = c
		}
	}
	return ids
}

func (r *recorder) newsOf(id uint64) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return countID(r.news, id)
}

func (r *recorder) freesOf(id uint64) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return countID(r.frees, id)
}

func countID(ids []uint64, id uint64) int {
	count := 0
	for _, v := range ids {
		if v == id {
			count++
		}
	}
	return count
}

func elementIDs(elements []Element) map[uint64]bool {
	ids := make(map[uint64]bool, len(elements))
	for _, e := range elements {
		ids[e.ID()] = true
	}
	return ids
}

func setupTestLogs(t *testing.T) {
	logs.Encoder = json.Marshal
	errors.Encoder = json.Marshal
	logs.SetLogger(func(e logs.Entry) {
		t.Log(e)
	})
	t.Cleanup(func() {
		logs.SetLogger(func(e logs.Entry) {})
	})
}
