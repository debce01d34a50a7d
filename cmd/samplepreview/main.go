// Sphere sampling preview tool - interactive view of how particle positions
// fill the sphere, with sliders.
//
// The left view is a thin slab through the center (|z| < slab); the right
// histogram bins (r/R)^3, which is flat when sampling is uniform by volume.
//
// Usage: go run ./cmd/samplepreview
package main

import (
	"fmt"
	"math"
	"math/rand"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/nebula/field"
)

const (
	windowWidth  = 1000
	windowHeight = 620
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	bins         = 32
	slab         = 0.1
)

type sample struct {
	x, y, z float64
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Sphere Sampling Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	count := float32(20000)
	seed := float32(1)
	naive := false

	var points []sample
	var hist [bins]int
	var volumeRatio, meanRadius float64
	needsResample := true

	for !rl.WindowShouldClose() {
		if needsResample {
			points = resample(int(count), int64(seed), naive)
			hist, volumeRatio, meanRadius = analyze(points)
			needsResample = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		// Center slab
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)
		half := float64(previewSize) / 2
		for _, p := range points {
			if math.Abs(p.z) > slab {
				continue
			}
			px := int32(10 + half + p.x*half*0.95)
			py := int32(10 + half - p.y*half*0.95)
			rl.DrawPixel(px, py, rl.SkyBlue)
		}
		rl.DrawCircleLines(int32(10+half), int32(10+half), float32(half*0.95), rl.Gray)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Sphere Sampling", int32(panelX), int32(panelY), 20, rl.White)
		panelY += 35

		rl.DrawText("Count", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newCount := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"", "", count, 1000, 100000,
		)
		newCount = float32(math.Round(float64(newCount)/1000) * 1000)
		rl.DrawText(fmt.Sprintf("%.0f", count), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.LightGray)
		if newCount != count {
			count = newCount
			needsResample = true
		}
		panelY += 35

		rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newSeed := float32(math.Round(float64(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"", "", seed, 1, 999,
		))))
		rl.DrawText(fmt.Sprintf("%.0f", seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.LightGray)
		if newSeed != seed {
			seed = newSeed
			needsResample = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 180, Height: 30}, toggleText(naive, "Use Cube Root", "Use Linear Radius")) {
			naive = !naive
			needsResample = true
		}
		panelY += 45

		mode := "cube root radius (volume uniform)"
		if naive {
			mode = "linear radius (clumps at center)"
		}
		rl.DrawText(mode, int32(panelX), int32(panelY), 14, rl.Yellow)
		panelY += 22
		rl.DrawText(fmt.Sprintf("mean (r/R)^3: %.3f  (uniform: 0.500)", volumeRatio), int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 18
		rl.DrawText(fmt.Sprintf("mean r/R:     %.3f  (uniform: 0.750)", meanRadius), int32(panelX), int32(panelY), 14, rl.LightGray)
		panelY += 30

		drawHistogram(hist, int32(panelX), int32(panelY), int32(panelWidth-20), 200, len(points))

		rl.EndDrawing()
	}
}

// resample draws unit-sphere positions with the field's sampler, or with a
// linear radius for comparison.
func resample(n int, seed int64, naive bool) []sample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sample, n)
	for i := range out {
		if naive {
			x, y, z := field.SampleOnShell(rng, rng.Float64())
			out[i] = sample{x, y, z}
			continue
		}
		x, y, z := field.SampleInSphere(rng, 1)
		out[i] = sample{x, y, z}
	}
	return out
}

func analyze(points []sample) (hist [bins]int, volumeRatio, meanRadius float64) {
	if len(points) == 0 {
		return hist, 0, 0
	}
	cubes := make([]float64, len(points))
	radii := make([]float64, len(points))
	for i, p := range points {
		r := math.Sqrt(p.x*p.x + p.y*p.y + p.z*p.z)
		radii[i] = r
		cubes[i] = r * r * r
		b := int(cubes[i] * bins)
		if b >= bins {
			b = bins - 1
		}
		hist[b]++
	}
	return hist, stat.Mean(cubes, nil), stat.Mean(radii, nil)
}

func drawHistogram(hist [bins]int, x, y, width, height int32, total int) {
	rl.DrawRectangleLines(x, y, width, height, rl.DarkGray)
	if total == 0 {
		return
	}
	expected := float32(total) / bins
	barW := width / bins
	for i, c := range hist {
		h := int32(float32(c) / (expected * 2) * float32(height))
		if h > height {
			h = height
		}
		rl.DrawRectangle(x+int32(i)*barW+1, y+height-h, barW-2, h, rl.SkyBlue)
	}
	// Expected level for a volume-uniform sampler
	rl.DrawLine(x, y+height/2, x+width, y+height/2, rl.Orange)
	rl.DrawText("(r/R)^3 histogram", x, y+height+6, 12, rl.Gray)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
