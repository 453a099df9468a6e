package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
)

// DebugInfo is a snapshot of the tree shape.
type DebugInfo struct {
	Name            string            `json:"name"`
	UUID            string            `json:"uuid"`
	Geometry        geometry.Geometry `json:"geometry"`
	LocalGeometry   geometry.Geometry `json:"local_geometry"`
	MaxObjects      int               `json:"max_objects"`
	MaxDepth        int               `json:"max_depth"`
	Hysteresis      int               `json:"hysteresis"`
	ElementCount    int               `json:"element_count"`
	NodeCount       int               `json:"node_count"`
	LeafCount       int               `json:"leaf_count"`
	LeavesPerDepth  []int             `json:"leaves_per_depth"`
	OverfullLeaves  int               `json:"overfull_leaves"`
	RemoteLeaves    int               `json:"remote_leaves"`
	MixedLeaves     int               `json:"mixed_leaves"`
	PerceiverLinks  int               `json:"perceiver_links"`
	ExtentLinks     int               `json:"extent_links"`
	FixedPerceivers int               `json:"fixed_perceivers"`
	Leaves          []LeafDebugInfo   `json:"leaves,omitempty"`
}

type LeafDebugInfo struct {
	Geometry   geometry.Geometry `json:"geometry"`
	Depth      int               `json:"depth"`
	Type       string            `json:"type"`
	Elements   int               `json:"elements"`
	Perceivers int               `json:"perceivers"`
	Extents    int               `json:"extents"`
}

// DebugInfo returns the tree shape. Leaves are listed when withLeaves is
// true.
func (t *QuadTree) DebugInfo(withLeaves bool) DebugInfo {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	info := DebugInfo{
		Name:            t.name,
		UUID:            t.uuid,
		Geometry:        t.root.geometry,
		LocalGeometry:   t.localGeometry,
		MaxObjects:      t.MaxObjects(),
		MaxDepth:        t.MaxDepth(),
		Hysteresis:      t.Hysteresis(),
		ElementCount:    t.elementCount,
		FixedPerceivers: len(t.fixedPerceivers),
	}

	t.root.walk(func(n *Node) bool {
		info.NodeCount++
		if !n.IsLeaf() {
			return true
		}

		for len(info.LeavesPerDepth) <= n.depth {
			info.LeavesPerDepth = append(info.LeavesPerDepth, 0)
		}
		info.LeavesPerDepth[n.depth]++
		info.LeafCount++

		elements := n.ElementCount()
		perceivers := len(n.Perceivers())
		extents := len(n.PerceiverExtentObjects())
		nodeType := n.NodeType()

		if elements > info.MaxObjects {
			info.OverfullLeaves++
		}
		switch nodeType {
		case NodeTypeRemote:
			info.RemoteLeaves++
		case NodeTypeMixed:
			info.MixedLeaves++
		}
		info.PerceiverLinks += perceivers
		info.ExtentLinks += extents

		if withLeaves {
			info.Leaves = append(info.Leaves, LeafDebugInfo{
				Geometry:   n.geometry,
				Depth:      n.depth,
				Type:       nodeType.String(),
				Elements:   elements,
				Perceivers: perceivers,
				Extents:    extents,
			})
		}
		return true
	})

	return info
}

// CheckInvariants walks the tree and returns an error describing the first
// structural inconsistency found.
func (t *QuadTree) CheckInvariants() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	maxDepth := t.MaxDepth()
	owners := make(map[Element]*Node)
	count := 0

	var err error
	t.root.walk(func(n *Node) bool {
		if n.depth > maxDepth {
			err = errors.New("node is deeper than the max depth").
				WithTag("geometry", n.geometry.String()).
				WithTag("depth", n.depth).
				WithTag("max_depth", maxDepth)
			return false
		}

		children := n.Children()
		if children != nil && len(children) != 4 {
			err = errors.New("internal node does not have four children").
				WithTag("geometry", n.geometry.String()).
				WithTag("children", len(children))
			return false
		}

		if children != nil && n.ElementCount() != 0 {
			err = errors.New("internal node holds elements").
				WithTag("geometry", n.geometry.String())
			return false
		}

		for _, e := range n.Elements() {
			if owner, ok := owners[e]; ok {
				err = errors.New("element is held by more than one leaf").
					WithTag("element_id", e.ID()).
					WithTag("first", owner.geometry.String()).
					WithTag("second", n.geometry.String())
				return false
			}
			owners[e] = n
			count++

			if e.QuadNode() != n {
				err = errors.New("element does not reference its leaf").
					WithTag("element_id", e.ID()).
					WithTag("geometry", n.geometry.String())
				return false
			}
		}

		for _, p := range n.Perceivers() {
			if !newNodeSet(p.QuadTreeNodes()).has(n) {
				err = errors.New("perceiver does not reference its leaf").
					WithTag("perceiver_id", p.ID()).
					WithTag("geometry", n.geometry.String())
				return false
			}
		}
		return true
	})
	if err != nil {
		return errors.New("quadtree invariant violated").
			WithType(ErrTypeInvariantViolation).
			Wrap(err)
	}

	if count != t.elementCount {
		return errors.New("element count mismatch").
			WithType(ErrTypeInvariantViolation).
			WithTag("counted", count).
			WithTag("expected", t.elementCount)
	}
	return nil
}
