package motion

import _ "embed"

// GLSL 330 sources for the same vertex and fragment stages, run per particle
// on the GPU. The functions in this package are their host reference.
var (
	//go:embed shaders/points.vs
	VertexShader string

	//go:embed shaders/points.fs
	FragmentShader string
)

// Vertex attribute locations used by VertexShader.
const (
	AttribCorner uint32 = iota
	AttribBase
	AttribRandom
	AttribColor
	AttribScale
)

// QuadCorners are the two triangles each particle instance expands to.
var QuadCorners = []float32{
	-1, -1, 1, -1, 1, 1,
	-1, -1, 1, 1, -1, 1,
}
