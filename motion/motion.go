// Package motion is the per-particle motion and shading math.
//
// Every function here is pure and depends only on one particle's attributes
// and the frame uniforms, so particles can be evaluated in any order and on
// any number of workers.
package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// PhaseScale turns a particle's x coordinate into a phase offset so that
	// neighbours move in loosely correlated waves.
	PhaseScale = 0.5

	// SizeAttenuation is the reference depth for point size falloff.
	SizeAttenuation = 100.0
)

// Particle is one particle's fixed attributes.
type Particle struct {
	Base   mgl32.Vec3
	Random mgl32.Vec3
	Scale  float32
	Color  mgl32.Vec3
}

// Uniforms are the per-frame scalars.
type Uniforms struct {
	Time      float32
	Speed     float32
	Size      float32
	Amplitude float32
}

// View is the camera transform applied to every particle.
type View struct {
	ModelView  mgl32.Mat4
	Projection mgl32.Mat4
}

// Vertex is the evaluated output for one particle.
type Vertex struct {
	Position mgl32.Vec3 // displaced, model space
	Eye      mgl32.Vec4 // camera space
	Clip     mgl32.Vec4
	Size     float32 // point size in pixels, 0 when culled
	Color    mgl32.Vec3
}

// Visible reports whether the vertex is in front of the camera and inside the clip volume.
func (v Vertex) Visible() bool {
	if v.Size <= 0 || v.Clip.W() <= 0 {
		return false
	}
	w := v.Clip.W()
	return v.Clip.Z() >= -w && v.Clip.Z() <= w
}

// NDC returns normalized device coordinates.
func (v Vertex) NDC() mgl32.Vec3 {
	return v.Clip.Vec3().Mul(1 / v.Clip.W())
}

// Displace offsets base along random by a sine wave of time, speed and the
// particle's own x coordinate.
func Displace(base, random mgl32.Vec3, time, speed, amplitude float32) mgl32.Vec3 {
	wave := float32(math.Sin(float64(time*speed + base.X()*PhaseScale)))
	return base.Add(random.Mul(wave * amplitude))
}

// PointSize returns the on-screen size for a point at eye-space depth eyeZ.
// The camera looks down -Z, so only negative depths are visible.
func PointSize(size, scale, eyeZ float32) float32 {
	if eyeZ >= 0 {
		return 0
	}
	return size * scale * (SizeAttenuation / -eyeZ)
}

// Project transforms a model-space position into eye and clip space.
func Project(pos mgl32.Vec3, view View) (eye, clip mgl32.Vec4) {
	eye = view.ModelView.Mul4x1(pos.Vec4(1))
	clip = view.Projection.Mul4x1(eye)
	return eye, clip
}

// Evaluate runs the full vertex stage for one particle.
func Evaluate(p Particle, u Uniforms, view View) Vertex {
	pos := Displace(p.Base, p.Random, u.Time, u.Speed, u.Amplitude)
	eye, clip := Project(pos, view)
	return Vertex{
		Position: pos,
		Eye:      eye,
		Clip:     clip,
		Size:     PointSize(u.Size, p.Scale, eye.Z()),
		Color:    p.Color,
	}
}

// Coverage is the sprite intensity at point coordinate (u, v) in [0,1]^2:
// (1 - distance from centre)^3, bright in the middle and dark at the edge.
func Coverage(u, v float32) float32 {
	du := float64(u - 0.5)
	dv := float64(v - 0.5)
	strength := 1 - math.Sqrt(du*du+dv*dv)
	return float32(strength * strength * strength)
}

// Shade mixes from black to color by coverage.
func Shade(color mgl32.Vec3, coverage float32) mgl32.Vec3 {
	return mix(mgl32.Vec3{}, color, coverage)
}

// BlendAdditive adds src onto dst, saturating each channel at 1.
// Order does not matter, so no depth sorting is needed.
func BlendAdditive(dst, src mgl32.Vec3) mgl32.Vec3 {
	out := dst.Add(src)
	for i := range out {
		if out[i] > 1 {
			out[i] = 1
		}
	}
	return out
}

func mix(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
