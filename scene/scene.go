// Package scene is the set of renderable point clouds the renderer draws each frame.
package scene

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nebula/field"
)

// PointCloud is a renderable particle buffer set with its uniforms.
// The renderer only reads it; the owning field swaps Buffers on regenerate.
type PointCloud struct {
	Buffers  *field.BufferSet
	Uniforms *field.Uniforms
}

// Scene holds the point clouds.
type Scene struct {
	world  *ecs.World
	clouds *ecs.Map1[PointCloud]
	filter *ecs.Filter1[PointCloud]
}

// New creates an empty scene.
func New() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:  world,
		clouds: ecs.NewMap1[PointCloud](world),
		filter: ecs.NewFilter1[PointCloud](world),
	}
}

// NewSlot returns a field.Stage that places one field's point cloud in the scene.
func (s *Scene) NewSlot() *Slot {
	return &Slot{scene: s}
}

// Each calls fn for every point cloud with live buffers.
func (s *Scene) Each(fn func(pc *PointCloud)) {
	query := s.filter.Query()
	for query.Next() {
		pc := query.Get()
		if pc.Buffers.Released() {
			continue
		}
		fn(pc)
	}
}

// Len returns the number of point clouds in the scene.
func (s *Scene) Len() int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

// TotalPoints returns the particle count across all clouds.
func (s *Scene) TotalPoints() int {
	total := 0
	s.Each(func(pc *PointCloud) {
		total += pc.Buffers.Count
	})
	return total
}

// Slot is one point cloud's place in the scene. It implements field.Stage.
type Slot struct {
	scene    *Scene
	entity   ecs.Entity
	attached bool
}

var _ field.Stage = (*Slot)(nil)

// Attach adds the point cloud to the scene.
func (sl *Slot) Attach(buffers *field.BufferSet, uniforms *field.Uniforms) {
	if sl.attached {
		sl.Detach()
	}
	sl.entity = sl.scene.clouds.NewEntity(&PointCloud{Buffers: buffers, Uniforms: uniforms})
	sl.attached = true
}

// Swap replaces the buffers in a single assignment.
func (sl *Slot) Swap(buffers *field.BufferSet) {
	if !sl.attached {
		return
	}
	sl.scene.clouds.Get(sl.entity).Buffers = buffers
}

// Detach removes the point cloud from the scene.
func (sl *Slot) Detach() {
	if !sl.attached {
		return
	}
	if sl.scene.world.Alive(sl.entity) {
		sl.scene.world.RemoveEntity(sl.entity)
	}
	sl.attached = false
}

// Attached reports whether the slot currently holds a point cloud.
func (sl *Slot) Attached() bool {
	return sl.attached
}

// Cloud returns the slot's component, or nil when detached.
func (sl *Slot) Cloud() *PointCloud {
	if !sl.attached {
		return nil
	}
	return sl.scene.clouds.Get(sl.entity)
}
