package models

import (
	"sort"
	"sync"

	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
)

// ObserverSender sends the objects an observer started to see and the ids of
// the objects it stopped seeing.
type ObserverSender func(news []ObjectView, frees []uint64)

// Observer is someone watching world objects through a perceiver, such as a
// player client or a debug viewer.
type Observer struct {
	ID     uint64
	Sender ObserverSender

	mutex   sync.Mutex
	visible map[uint64]struct{}
}

func NewObserver(id uint64, sender ObserverSender) *Observer {
	return &Observer{
		ID:      id,
		Sender:  sender,
		visible: make(map[uint64]struct{}),
	}
}

// Add marks the object as visible and reports whether it was not already.
func (o *Observer) Add(id uint64) bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, ok := o.visible[id]; ok {
		return false
	}
	o.visible[id] = struct{}{}
	return true
}

// Remove marks the object as not visible and reports whether it was.
func (o *Observer) Remove(id uint64) bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, ok := o.visible[id]; !ok {
		return false
	}
	delete(o.visible, id)
	return true
}

func (o *Observer) IsVisible(id uint64) bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	_, ok := o.visible[id]
	return ok
}

// Visible returns the sorted ids of the visible objects.
func (o *Observer) Visible() []uint64 {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	ids := make([]uint64, 0, len(o.visible))
	for id := range o.visible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

// HandleNewsAndFrees is a perceiver callback. Notifications that do not change
// what the observer sees are dropped, the others are forwarded to the
// sender.
func (o *Observer) HandleNewsAndFrees(p quadtree.Perceiver, news, frees []quadtree.Element) {
	var newViews []ObjectView
	for _, obj := range toObjects(news) {
		if o.Add(obj.ID()) {
			newViews = append(newViews, obj.View())
		}
	}

	var freeIDs []uint64
	for _, e := range frees {
		if o.Remove(e.ID()) {
			freeIDs = append(freeIDs, e.ID())
		}
	}

	if len(newViews) == 0 && len(freeIDs) == 0 {
		return
	}

	instrumentObserverNotifications(len(newViews), len(freeIDs))
	if o.Sender != nil {
		o.Sender(newViews, freeIDs)
	}
}
