package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/motion"
	"github.com/pthm-cable/nebula/raster"
	"github.com/pthm-cable/nebula/scene"
)

// glFloat is GL_FLOAT.
const glFloat = 0x1406

const floatBytes = 4

// gpuCloud is one buffer generation uploaded to the GPU.
type gpuCloud struct {
	vao   uint32
	vbo   uint32
	count int32
	seen  bool
}

// GPUPointRenderer runs the motion stage in a vertex shader. Particle
// attributes are uploaded once per buffer generation and drawn instanced;
// per frame only the uniforms change.
type GPUPointRenderer struct {
	shader     rl.Shader
	background rl.Color

	// Shader uniform locations
	modelViewLoc  int32
	projectionLoc int32
	viewportLoc   int32
	timeLoc       int32
	speedLoc      int32
	sizeLoc       int32
	amplitudeLoc  int32

	cornerVBO uint32
	clouds    map[uuid.UUID]*gpuCloud
	packed    []float32

	initialized bool
}

// NewGPUPointRenderer creates a GPU point renderer.
func NewGPUPointRenderer(background mgl32.Vec3) *GPUPointRenderer {
	return &GPUPointRenderer{
		background: toRLColor(background),
		clouds:     make(map[uuid.UUID]*gpuCloud),
	}
}

// Init compiles the shaders (must be called after raylib window is created).
// It returns false when the shader could not be built; the caller should
// fall back to PointRenderer.
func (r *GPUPointRenderer) Init() bool {
	if r.initialized {
		return true
	}

	r.shader = rl.LoadShaderFromMemory(motion.VertexShader, motion.FragmentShader)
	r.modelViewLoc = rl.GetShaderLocation(r.shader, "uModelView")
	r.projectionLoc = rl.GetShaderLocation(r.shader, "uProjection")
	r.viewportLoc = rl.GetShaderLocation(r.shader, "uViewport")
	r.timeLoc = rl.GetShaderLocation(r.shader, "uTime")
	r.speedLoc = rl.GetShaderLocation(r.shader, "uSpeed")
	r.sizeLoc = rl.GetShaderLocation(r.shader, "uSize")
	r.amplitudeLoc = rl.GetShaderLocation(r.shader, "uAmplitude")

	// A failed compile leaves raylib's default shader, which has none of these.
	if r.modelViewLoc < 0 || r.timeLoc < 0 || r.viewportLoc < 0 {
		slog.Warn("particle shader unavailable, using CPU sprites")
		rl.UnloadShader(r.shader)
		return false
	}

	r.cornerVBO = rl.LoadVertexBuffer(motion.QuadCorners, false)
	r.initialized = true
	return true
}

// Draw renders every point cloud with additive blending and no depth writes.
func (r *GPUPointRenderer) Draw(sc *scene.Scene, cam *camera.Camera) {
	rl.ClearBackground(r.background)

	for _, c := range r.clouds {
		c.seen = false
	}

	rl.SetShaderValueMatrix(r.shader, r.modelViewLoc, toRLMatrix(cam.ViewMatrix()))
	rl.SetShaderValueMatrix(r.shader, r.projectionLoc, toRLMatrix(cam.ProjectionMatrix()))
	rl.SetShaderValue(r.shader, r.viewportLoc, []float32{cam.ViewportW, cam.ViewportH}, rl.ShaderUniformVec2)

	rl.BeginBlendMode(rl.BlendAdditive)
	sc.Each(func(pc *scene.PointCloud) {
		c := r.upload(pc)
		c.seen = true
		if c.count == 0 {
			return
		}

		u := pc.Uniforms
		rl.SetShaderValue(r.shader, r.timeLoc, []float32{u.Time}, rl.ShaderUniformFloat)
		rl.SetShaderValue(r.shader, r.speedLoc, []float32{u.Speed}, rl.ShaderUniformFloat)
		rl.SetShaderValue(r.shader, r.sizeLoc, []float32{u.Size}, rl.ShaderUniformFloat)
		rl.SetShaderValue(r.shader, r.amplitudeLoc, []float32{u.Randomness}, rl.ShaderUniformFloat)

		rl.EnableShader(r.shader.ID)
		if rl.EnableVertexArray(c.vao) {
			rl.DrawVertexArrayInstanced(0, int32(len(motion.QuadCorners)/2), c.count)
			rl.DisableVertexArray()
		}
		rl.DisableShader()
	})
	rl.EndBlendMode()

	// Release generations the scene no longer holds.
	for id, c := range r.clouds {
		if !c.seen {
			c.unload()
			delete(r.clouds, id)
		}
	}
}

// upload returns the GPU copy of pc's buffers, creating it on first sight of
// a buffer generation.
func (r *GPUPointRenderer) upload(pc *scene.PointCloud) *gpuCloud {
	b := pc.Buffers
	if c, ok := r.clouds[b.ID]; ok {
		return c
	}

	c := &gpuCloud{count: int32(b.Count)}
	r.clouds[b.ID] = c
	if b.Count == 0 {
		return c
	}

	r.packed = raster.PackInstances(b, r.packed)

	c.vao = rl.LoadVertexArray()
	rl.EnableVertexArray(c.vao)

	rl.EnableVertexBuffer(r.cornerVBO)
	rl.SetVertexAttribute(motion.AttribCorner, 2, glFloat, false, 2*floatBytes, 0)
	rl.EnableVertexAttribute(motion.AttribCorner)

	c.vbo = rl.LoadVertexBuffer(r.packed, false)
	for _, a := range raster.InstanceAttribs {
		rl.SetVertexAttribute(a.Location, a.Size, glFloat, false, raster.InstanceStride*floatBytes, a.Offset*floatBytes)
		rl.SetVertexAttributeDivisor(a.Location, 1)
		rl.EnableVertexAttribute(a.Location)
	}

	rl.DisableVertexArray()
	rl.DisableVertexBuffer()

	slog.Debug("particle buffers uploaded", "generation", b.ID, "count", b.Count)
	return c
}

func (c *gpuCloud) unload() {
	if c.vbo != 0 {
		rl.UnloadVertexBuffer(c.vbo)
	}
	if c.vao != 0 {
		rl.UnloadVertexArray(c.vao)
	}
}

// Unload frees resources.
func (r *GPUPointRenderer) Unload() {
	if !r.initialized {
		return
	}
	for id, c := range r.clouds {
		c.unload()
		delete(r.clouds, id)
	}
	rl.UnloadVertexBuffer(r.cornerVBO)
	rl.UnloadShader(r.shader)
	r.initialized = false
}

// toRLMatrix copies a column-major mgl32 matrix into raylib's layout.
func toRLMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}
