// Package raster evaluates particles into screen-space sprites and rasterizes
// them without a GPU.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/motion"
	"github.com/pthm-cable/nebula/scene"
)

// Software rasterizes the scene into an RGBA image without a GPU.
// It is used for headless runs and video export and shares the evaluator
// with the windowed renderer, so both produce the same picture.
type Software struct {
	width, height int
	background    mgl32.Vec3
	eval          *Evaluator

	accum []float32 // rgb per pixel, additive
	frame *image.RGBA
}

// NewSoftware creates a software renderer with the given output size.
func NewSoftware(width, height int, background mgl32.Vec3, eval *Evaluator) *Software {
	return &Software{
		width:      width,
		height:     height,
		background: background,
		eval:       eval,
		accum:      make([]float32, width*height*3),
		frame:      image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Size returns the output dimensions.
func (s *Software) Size() (width, height int) {
	return s.width, s.height
}

// Render draws every point cloud in the scene and returns the frame.
// The returned image is reused by the next call.
func (s *Software) Render(sc *scene.Scene, cam *camera.Camera) *image.RGBA {
	for i := 0; i < len(s.accum); i += 3 {
		s.accum[i] = s.background[0]
		s.accum[i+1] = s.background[1]
		s.accum[i+2] = s.background[2]
	}

	sc.Each(func(pc *scene.PointCloud) {
		sprites := s.eval.Evaluate(pc.Buffers, pc.Uniforms, cam)
		for i := range sprites {
			if sprites[i].Visible {
				s.drawSprite(&sprites[i])
			}
		}
	})

	s.resolve()
	return s.frame
}

// drawSprite splats one point sprite into the accumulation buffer.
func (s *Software) drawSprite(sp *Sprite) {
	size := sp.Size
	if size < 1 {
		size = 1
	}
	half := size / 2
	x0 := int(math.Floor(float64(sp.X - half)))
	y0 := int(math.Floor(float64(sp.Y - half)))
	x1 := int(math.Ceil(float64(sp.X + half)))
	y1 := int(math.Ceil(float64(sp.Y + half)))

	if x1 <= 0 || y1 <= 0 || x0 >= s.width || y0 >= s.height {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > s.width {
		x1 = s.width
	}
	if y1 > s.height {
		y1 = s.height
	}

	left := sp.X - half
	top := sp.Y - half
	for py := y0; py < y1; py++ {
		v := (float32(py) + 0.5 - top) / size
		if v < 0 || v > 1 {
			continue
		}
		row := py * s.width * 3
		for px := x0; px < x1; px++ {
			u := (float32(px) + 0.5 - left) / size
			if u < 0 || u > 1 {
				continue
			}
			c := motion.Shade(sp.Color, motion.Coverage(u, v))
			idx := row + px*3
			s.accum[idx] += c[0]
			s.accum[idx+1] += c[1]
			s.accum[idx+2] += c[2]
		}
	}
}

// resolve saturates the accumulation buffer into the output image.
func (s *Software) resolve() {
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			idx := (y*s.width + x) * 3
			s.frame.SetRGBA(x, y, color.RGBA{
				R: ToByte(s.accum[idx]),
				G: ToByte(s.accum[idx+1]),
				B: ToByte(s.accum[idx+2]),
				A: 255,
			})
		}
	}
}

// ToByte converts a [0,1] channel to 8 bits, saturating.
func ToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// SpriteImage renders the point sprite coverage into a grey image.
func SpriteImage(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		v := (float32(y) + 0.5) / float32(size)
		for x := 0; x < size; x++ {
			u := (float32(x) + 0.5) / float32(size)
			g := ToByte(motion.Coverage(u, v))
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}
