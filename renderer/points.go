// Package renderer draws the particle scene with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/raster"
	"github.com/pthm-cable/nebula/scene"
)

// PointRenderer draws the scene's point clouds as additive soft sprites.
type PointRenderer struct {
	sprite      rl.Texture2D
	spriteSize  int32
	background  rl.Color
	eval        *raster.Evaluator
	initialized bool
}

// NewPointRenderer creates a new point renderer.
func NewPointRenderer(spriteSize int, background mgl32.Vec3, eval *raster.Evaluator) *PointRenderer {
	if spriteSize < 8 {
		spriteSize = 8
	}
	return &PointRenderer{
		spriteSize: int32(spriteSize),
		background: toRLColor(background),
		eval:       eval,
	}
}

// Init uploads the sprite texture (must be called after raylib window is created).
func (r *PointRenderer) Init() {
	if r.initialized {
		return
	}

	img := rl.NewImageFromImage(raster.SpriteImage(int(r.spriteSize)))
	r.sprite = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(r.sprite, rl.FilterBilinear)

	r.initialized = true
}

// Draw renders every point cloud. The sprite holds the coverage falloff in
// grey; tinting by the particle color gives mix(black, color, coverage).
// Depth is never written, so overlapping particles only add up.
func (r *PointRenderer) Draw(sc *scene.Scene, cam *camera.Camera) {
	if !r.initialized {
		r.Init()
	}

	rl.ClearBackground(r.background)

	src := rl.Rectangle{X: 0, Y: 0, Width: float32(r.spriteSize), Height: float32(r.spriteSize)}

	rl.BeginBlendMode(rl.BlendAdditive)
	sc.Each(func(pc *scene.PointCloud) {
		sprites := r.eval.Evaluate(pc.Buffers, pc.Uniforms, cam)
		for i := range sprites {
			sp := &sprites[i]
			if !sp.Visible {
				continue
			}
			size := sp.Size
			if size < 1 {
				size = 1
			}
			dest := rl.Rectangle{X: sp.X, Y: sp.Y, Width: size, Height: size}
			origin := rl.Vector2{X: size / 2, Y: size / 2}
			rl.DrawTexturePro(r.sprite, src, dest, origin, 0, toRLColor(sp.Color))
		}
	})
	rl.EndBlendMode()
}

// Unload frees resources.
func (r *PointRenderer) Unload() {
	if r.initialized {
		rl.UnloadTexture(r.sprite)
		r.initialized = false
	}
}

func toRLColor(c mgl32.Vec3) rl.Color {
	return rl.Color{R: raster.ToByte(c[0]), G: raster.ToByte(c[1]), B: raster.ToByte(c[2]), A: 255}
}
