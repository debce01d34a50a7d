// Frame dump tool - renders one frame with the software rasterizer to a PNG
// file for inspection.
//
// Usage: go run ./cmd/framedump -time 2.5 -count 20000 -out frame.png
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"

	"github.com/pthm-cable/nebula/app"
	"github.com/pthm-cable/nebula/config"
	"github.com/pthm-cable/nebula/field"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "frame.png", "Output PNG path")
	width := flag.Int("width", 0, "Render width (0 = screen.width)")
	height := flag.Int("height", 0, "Render height (0 = screen.height)")
	seed := flag.Int64("seed", 1, "RNG seed")
	at := flag.Float64("time", 0, "Animation time in seconds")
	count := flag.Int("count", 0, "Particle count override")
	color := flag.String("color", "", "Particle color override (hex)")
	zoom := flag.Float64("zoom", 0, "Wheel notches to zoom before rendering")
	pixelRatio := flag.Float64("pixel-ratio", 1, "Device pixel ratio (scales point size, clamped to screen.max_pixel_ratio)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	params, err := app.ParamsFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid particle config: %v\n", err)
		os.Exit(1)
	}
	if *count > 0 {
		params, err = params.With(field.KeyCount, *count)
	}
	if err == nil && *color != "" {
		params, err = params.With(field.KeyColor, *color)
	}
	if err == nil {
		err = params.Validate(cfg.Particles.MaxCount)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, app.Options{Seed: *seed, Params: &params, PixelRatio: *pixelRatio})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create field: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	w, h := cfg.Screen.Width, cfg.Screen.Height
	if *width > 0 {
		w = *width
	}
	if *height > 0 {
		h = *height
	}
	a.Resize(w, h)
	a.Zoom(float32(*zoom))
	a.Advance(*at)

	img := a.RenderSoftware()

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		os.Exit(1)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Failed to encode PNG: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write PNG: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Frame rendered to: %s (%dx%d, %d particles, t=%.2f)\n", *outPath, w, h, params.Count, *at)
}
