package raster

import (
	"github.com/pthm-cable/nebula/field"
	"github.com/pthm-cable/nebula/motion"
)

// Interleaved per-instance layout: base xyz, random xyz, color rgb, scale.
const (
	InstanceStride = 10 // floats per particle

	OffsetBase   = 0
	OffsetRandom = 3
	OffsetColor  = 6
	OffsetScale  = 9
)

// InstanceAttrib describes one per-instance vertex attribute in the packed buffer.
type InstanceAttrib struct {
	Location uint32
	Size     int32 // float components
	Offset   int32 // in floats
}

// InstanceAttribs lists the packed attributes in the order the vertex shader declares them.
var InstanceAttribs = []InstanceAttrib{
	{Location: motion.AttribBase, Size: 3, Offset: OffsetBase},
	{Location: motion.AttribRandom, Size: 3, Offset: OffsetRandom},
	{Location: motion.AttribColor, Size: 3, Offset: OffsetColor},
	{Location: motion.AttribScale, Size: 1, Offset: OffsetScale},
}

// PackInstances interleaves a buffer set into one float slice for upload,
// reusing dst when it is large enough.
func PackInstances(b *field.BufferSet, dst []float32) []float32 {
	n := b.Count * InstanceStride
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]

	for i := 0; i < b.Count; i++ {
		o := i * InstanceStride
		i3 := i * 3
		copy(dst[o+OffsetBase:o+OffsetBase+3], b.Positions[i3:i3+3])
		copy(dst[o+OffsetRandom:o+OffsetRandom+3], b.Randomness[i3:i3+3])
		copy(dst[o+OffsetColor:o+OffsetColor+3], b.Colors[i3:i3+3])
		dst[o+OffsetScale] = b.Scales[i]
	}
	return dst
}
