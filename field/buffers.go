package field

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// BufferSet holds the per-particle attribute arrays in GPU layout.
// All arrays describe exactly Count particles and are only ever built
// together by generate; they are never resized or written after that.
type BufferSet struct {
	ID    uuid.UUID // generation id, new for every rebuild
	Count int

	Positions  []float32 // xyz per particle
	Colors     []float32 // rgb per particle
	Scales     []float32 // one per particle, [0,1)
	Randomness []float32 // xyz per particle, each in [-1,1)

	released bool
}

// allocate makes a zeroed buffer set. Allocator panics for absurd sizes are
// turned into ErrBufferAllocation so the caller can keep its old set.
func allocate(count int) (set *BufferSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			set = nil
			err = fmt.Errorf("%w: %d particles: %v", ErrBufferAllocation, count, r)
		}
	}()

	return &BufferSet{
		ID:         uuid.New(),
		Count:      count,
		Positions:  make([]float32, count*3),
		Colors:     make([]float32, count*3),
		Scales:     make([]float32, count),
		Randomness: make([]float32, count*3),
	}, nil
}

// Position returns the base position of particle i.
func (b *BufferSet) Position(i int) mgl32.Vec3 {
	i3 := i * 3
	return mgl32.Vec3{b.Positions[i3], b.Positions[i3+1], b.Positions[i3+2]}
}

// Color returns the baked color of particle i.
func (b *BufferSet) Color(i int) mgl32.Vec3 {
	i3 := i * 3
	return mgl32.Vec3{b.Colors[i3], b.Colors[i3+1], b.Colors[i3+2]}
}

// RandomVector returns the fixed motion vector of particle i.
func (b *BufferSet) RandomVector(i int) mgl32.Vec3 {
	i3 := i * 3
	return mgl32.Vec3{b.Randomness[i3], b.Randomness[i3+1], b.Randomness[i3+2]}
}

// Scale returns the size multiplier of particle i.
func (b *BufferSet) Scale(i int) float32 {
	return b.Scales[i]
}

// Release drops the arrays. Consumers must stop reading the set once it is released.
func (b *BufferSet) Release() {
	if b == nil || b.released {
		return
	}
	b.Positions = nil
	b.Colors = nil
	b.Scales = nil
	b.Randomness = nil
	b.released = true
}

// Released reports whether Release has been called.
func (b *BufferSet) Released() bool {
	return b == nil || b.released
}
