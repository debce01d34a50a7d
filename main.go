package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/nebula/app"
	"github.com/pthm-cable/nebula/config"
	"github.com/pthm-cable/nebula/field"
	"github.com/pthm-cable/nebula/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	paramsPath := flag.String("params", "", "Load particle parameters from an exported JSON config")
	headless := flag.Bool("headless", false, "Render with the software rasterizer, no window")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("frames", 0, "Stop after N frames (0 = unlimited)")
	record := flag.Bool("record", false, "Start recording a video immediately")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	exportDir := flag.String("export-dir", "", "Directory for exported videos and configs (empty = use config)")
	exportConfig := flag.Bool("export-config", false, "Write the particle config JSON on exit")
	pixelRatio := flag.Float64("pixel-ratio", 1, "Device pixel ratio for headless rendering (scales point size)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts := app.Options{
		Seed:      *seed,
		OutputDir: *outputDir,
		ExportDir: *exportDir,
	}
	if *paramsPath != "" {
		p, err := loadParams(cfg, *paramsPath)
		if err != nil {
			slog.Error("failed to load params", "path", *paramsPath, "error", err)
			os.Exit(1)
		}
		opts.Params = &p
	}

	if *headless {
		opts.PixelRatio = *pixelRatio
		runHeadless(cfg, opts, *maxFrames, *record, *exportConfig)
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Nebula")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		rl.CloseWindow()
		os.Exit(1)
	}
	v := viewer.New(a)
	defer v.Unload()

	if *record {
		a.ToggleRecording()
	}

	for frames := 0; !rl.WindowShouldClose(); frames++ {
		v.Update()
		v.Draw()

		if *maxFrames > 0 && frames+1 >= *maxFrames {
			break
		}
	}

	if *exportConfig {
		if _, err := a.ExportConfig(); err != nil {
			slog.Error("config export failed", "error", err)
		}
	}
}

func runHeadless(cfg *config.Config, opts app.Options, maxFrames int, record, exportConfig bool) {
	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	if maxFrames <= 0 {
		if !record {
			slog.Error("headless mode needs -frames or -record")
			return
		}
		maxFrames = cfg.Export.FrameBudget
	}

	slog.Info("starting headless run",
		"frames", maxFrames,
		"record", record,
		"width", cfg.Screen.Width,
		"height", cfg.Screen.Height,
	)

	if record {
		a.ToggleRecording()
	}
	for i := 0; i < maxFrames; i++ {
		a.StepHeadless()
	}
	slog.Info("max frames reached", "frame", a.Frame())

	if exportConfig {
		if _, err := a.ExportConfig(); err != nil {
			slog.Error("config export failed", "error", err)
		}
	}
}

func loadParams(cfg *config.Config, path string) (field.Params, error) {
	base, err := app.ParamsFromConfig(cfg)
	if err != nil {
		return field.Params{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return field.Params{}, err
	}
	defer f.Close()

	p, err := field.ReadParams(f, base)
	if err != nil {
		return field.Params{}, err
	}
	return p, p.Validate(cfg.Particles.MaxCount)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
