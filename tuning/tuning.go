// Package tuning loads the quadtree tuning file.
package tuning

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"gopkg.in/yaml.v3"
)

const (
	ErrTypeInvalidTuning = "invalid-tuning"
)

type Tuning struct {
	Bounds           Bounds           `yaml:"bounds"`
	LocalBounds      *Bounds          `yaml:"local_bounds"`
	MaxObjects       int              `yaml:"max_objects"`
	MaxDepth         int              `yaml:"max_depth"`
	Hysteresis       int              `yaml:"hysteresis"`
	ExtentPerceivers bool             `yaml:"extent_perceivers"`
	Regions          []Region         `yaml:"regions"`
	FixedPerceivers  []FixedPerceiver `yaml:"fixed_perceivers"`
}

type Bounds struct {
	MinX int `yaml:"min_x"`
	MaxX int `yaml:"max_x"`
	MinZ int `yaml:"min_z"`
	MaxZ int `yaml:"max_z"`
}

func (b Bounds) Geometry() (geometry.Geometry, error) {
	return geometry.NewGeometry(b.MinX, b.MaxX, b.MinZ, b.MaxZ)
}

type Region struct {
	Name       string            `yaml:"name"`
	Priority   int               `yaml:"priority"`
	Points     [][2]int          `yaml:"points"`
	Properties map[string]string `yaml:"properties"`
}

func (r Region) Region() (*quadtree.Region, error) {
	points := make([]geometry.Point, len(r.Points))
	for i, p := range r.Points {
		points[i] = geometry.NewPoint(p[0], 0, p[1])
	}

	boundary, err := geometry.NewBoundary(points...)
	if err != nil {
		return nil, errors.New("invalid region boundary").
			WithTag("region", r.Name).
			Wrap(err)
	}

	region := quadtree.NewRegion(r.Name, r.Priority, boundary)
	for k, v := range r.Properties {
		region.Properties[k] = v
	}
	return region, nil
}

type FixedPerceiver struct {
	ID     uint64 `yaml:"id"`
	Bounds Bounds `yaml:"bounds"`
}

// Default returns the tuning used when no file is given.
func Default() Tuning {
	return Tuning{
		Bounds: Bounds{
			MinX: -100000,
			MaxX: 100000,
			MinZ: -100000,
			MaxZ: 100000,
		},
		MaxObjects: quadtree.DefaultMaxObjects,
		MaxDepth:   quadtree.DefaultMaxDepth,
	}
}

// Load reads and validates the tuning file at path. Missing values are taken
// from Default.
func Load(path string) (Tuning, error) {
	t := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return t, errors.New("reading tuning file failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, errors.New("decoding tuning file failed").
			WithType(ErrTypeInvalidTuning).
			WithTag("path", path).
			Wrap(err)
	}

	if err := t.Validate(); err != nil {
		return t, errors.New("invalid tuning file").
			WithType(ErrTypeInvalidTuning).
			WithTag("path", path).
			Wrap(err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	bounds, err := t.Bounds.Geometry()
	if err != nil {
		return errors.New("invalid bounds").Wrap(err)
	}

	if t.LocalBounds != nil {
		local, err := t.LocalBounds.Geometry()
		if err != nil {
			return errors.New("invalid local bounds").Wrap(err)
		}
		if !bounds.Overlaps(local) {
			return errors.New("local bounds are outside the bounds").
				WithTag("bounds", bounds.String()).
				WithTag("local_bounds", local.String())
		}
	}

	if t.MaxObjects < 1 {
		return errors.New("max objects must be positive").
			WithTag("max_objects", t.MaxObjects)
	}

	if t.MaxDepth < 0 {
		return errors.New("max depth can't be negative").
			WithTag("max_depth", t.MaxDepth)
	}

	if t.Hysteresis < 0 {
		return errors.New("hysteresis can't be negative").
			WithTag("hysteresis", t.Hysteresis)
	}

	for _, r := range t.Regions {
		if _, err := r.Region(); err != nil {
			return err
		}
	}

	ids := make(map[uint64]struct{}, len(t.FixedPerceivers))
	for _, p := range t.FixedPerceivers {
		if _, err := p.Bounds.Geometry(); err != nil {
			return errors.New("invalid fixed perceiver bounds").
				WithTag("perceiver_id", p.ID).
				Wrap(err)
		}

		if _, ok := ids[p.ID]; ok {
			return errors.New("duplicated fixed perceiver id").
				WithTag("perceiver_id", p.ID)
		}
		ids[p.ID] = struct{}{}
	}
	return nil
}

// NewTree creates a quadtree configured with the tuning. Regions, local
// bounds and fixed perceivers are registered on the returned tree.
func (t Tuning) NewTree(name string) (*quadtree.QuadTree, []*quadtree.FixedPerceiver, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, errors.New("invalid tuning").
			WithType(ErrTypeInvalidTuning).
			Wrap(err)
	}

	bounds, _ := t.Bounds.Geometry()
	tree := quadtree.New(bounds,
		quadtree.WithName(name),
		quadtree.WithMaxObjects(t.MaxObjects),
		quadtree.WithMaxDepth(t.MaxDepth),
		quadtree.WithHysteresis(t.Hysteresis),
		quadtree.WithExtentPerceivers(t.ExtentPerceivers),
	)

	if t.LocalBounds != nil {
		local, _ := t.LocalBounds.Geometry()
		tree.SetLocalGeometry(local)
	}

	for _, r := range t.Regions {
		region, _ := r.Region()
		tree.AddRegion(region)
	}

	perceivers := make([]*quadtree.FixedPerceiver, 0, len(t.FixedPerceivers))
	for _, p := range t.FixedPerceivers {
		g, _ := p.Bounds.Geometry()
		perceivers = append(perceivers, quadtree.NewFixedPerceiver(p.ID, g))
	}

	return tree, perceivers, nil
}

// Apply updates the limits and the hysteresis of a running tree. Bounds,
// regions and perceivers are not reloaded.
func (t Tuning) Apply(tree *quadtree.QuadTree) error {
	if err := t.Validate(); err != nil {
		return errors.New("invalid tuning").
			WithType(ErrTypeInvalidTuning).
			Wrap(err)
	}

	tree.SetMaxObjects(t.MaxObjects)
	tree.SetMaxDepth(t.MaxDepth)
	tree.SetHysteresis(t.Hysteresis)
	return nil
}
