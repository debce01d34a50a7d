// Package camera provides the perspective camera the particle field is viewed through.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/motion"
)

// Camera is a perspective camera on the +Z axis looking at the origin.
type Camera struct {
	// Distance from the origin along +Z
	Distance float32

	// Vertical field of view in degrees
	FOV float32

	// Clip planes
	Near, Far float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints (distance bounds)
	MinDistance, MaxDistance float32

	defaultDistance float32
}

// New creates a camera at the given distance with the given viewport.
func New(viewportW, viewportH, fov, near, far, distance float32) *Camera {
	return &Camera{
		Distance:        distance,
		FOV:             fov,
		Near:            near,
		Far:             far,
		ViewportW:       viewportW,
		ViewportH:       viewportH,
		MinDistance:     near * 2,
		MaxDistance:     far * 0.9,
		defaultDistance: distance,
	}
}

// Aspect returns the viewport aspect ratio.
func (c *Camera) Aspect() float32 {
	if c.ViewportH == 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	eye := mgl32.Vec3{0, 0, c.Distance}
	return mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection for the current viewport.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect(), c.Near, c.Far)
}

// View returns the transform pair consumed by the motion evaluator.
// The particle field sits at the origin, so model-view is the view matrix.
func (c *Camera) View() motion.View {
	return motion.View{
		ModelView:  c.ViewMatrix(),
		Projection: c.ProjectionMatrix(),
	}
}

// WorldToScreen projects a world point to pixel coordinates.
// ok is false when the point is behind the camera.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (sx, sy float32, ok bool) {
	_, clip := motion.Project(p, c.View())
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	sx, sy = c.NDCToScreen(ndc.X(), ndc.Y())
	return sx, sy, true
}

// NDCToScreen maps normalized device coordinates to pixels, origin top-left.
func (c *Camera) NDCToScreen(x, y float32) (sx, sy float32) {
	sx = (x*0.5 + 0.5) * c.ViewportW
	sy = (1 - (y*0.5 + 0.5)) * c.ViewportH
	return sx, sy
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW <= 0 || viewportH <= 0 {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// SetDistance sets the camera distance, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the distance by factor, so factors above 1 move closer.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Reset returns the camera to its initial distance.
func (c *Camera) Reset() {
	c.Distance = c.defaultDistance
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
