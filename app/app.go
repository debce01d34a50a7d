// Package app wires the particle field to its scene, camera, recorder and
// telemetry. It owns the frame loop's state but no window; the viewer and
// headless runs both drive it.
package app

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/capture"
	"github.com/pthm-cable/nebula/config"
	"github.com/pthm-cable/nebula/control"
	"github.com/pthm-cable/nebula/field"
	"github.com/pthm-cable/nebula/raster"
	"github.com/pthm-cable/nebula/scene"
	"github.com/pthm-cable/nebula/telemetry"
)

// Options configures an App beyond the loaded config.
type Options struct {
	Seed       int64  // 0 = time-based
	OutputDir  string // CSV telemetry directory; empty disables
	ExportDir  string // overrides export.dir when set
	PixelRatio float64
	Params     *field.Params // overrides the configured initial parameters
	// SinkFactory overrides the GIF sink, mainly for tests.
	SinkFactory capture.SinkFactory
}

// App holds the complete viewer state.
type App struct {
	cfg *config.Config
	rng *rand.Rand

	field  *field.Field
	scene  *scene.Scene
	slot   *scene.Slot
	camera *camera.Camera
	eval   *raster.Evaluator

	// software is created on first headless render.
	software   *raster.Software
	background mgl32.Vec3

	recorder *capture.Recorder
	perf     *telemetry.PerfCollector
	output   *telemetry.OutputManager
	queue    control.Queue

	exportDir  string
	elapsed    float64
	frame      int64
	lastLogAt  float64
	status     string
	lastResult capture.Result
}

// ParamsFromConfig builds the initial field parameters from the particles section.
func ParamsFromConfig(cfg *config.Config) (field.Params, error) {
	c, err := field.ParseColor(cfg.Particles.Color)
	if err != nil {
		return field.Params{}, fmt.Errorf("particles.color: %w", err)
	}
	p := field.Params{
		Count:      cfg.Particles.Count,
		Size:       cfg.Particles.Size,
		Color:      c,
		Speed:      cfg.Particles.Speed,
		Radius:     cfg.Particles.Radius,
		Randomness: cfg.Particles.Randomness,
	}
	if err := p.Validate(cfg.Particles.MaxCount); err != nil {
		return field.Params{}, err
	}
	return p, nil
}

// New creates an App and generates the initial field.
func New(cfg *config.Config, opts Options) (*App, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	params := field.Params{}
	if opts.Params != nil {
		params = *opts.Params
	} else {
		p, err := ParamsFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		params = p
	}

	bg, err := field.ParseColor(cfg.Render.Background)
	if err != nil {
		return nil, fmt.Errorf("render.background: %w", err)
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	cam := camera.New(cfg.Derived.ScreenW32, cfg.Derived.ScreenH32,
		float32(cfg.Camera.FOV), float32(cfg.Camera.Near), float32(cfg.Camera.Far), float32(cfg.Camera.Distance))
	if cfg.Camera.MinDistance > 0 {
		cam.MinDistance = float32(cfg.Camera.MinDistance)
	}
	if cfg.Camera.MaxDistance > 0 {
		cam.MaxDistance = float32(cfg.Camera.MaxDistance)
	}

	a := &App{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(seed)),
		scene:      scene.New(),
		camera:     cam,
		eval:       raster.NewEvaluator(cfg.Render.Workers, cfg.Render.ParallelThreshold),
		background: mgl32.Vec3{bg.R, bg.G, bg.B},
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:     output,
		exportDir:  cfg.Export.Dir,
	}
	if opts.ExportDir != "" {
		a.exportDir = opts.ExportDir
	}
	a.slot = a.scene.NewSlot()

	sinks := opts.SinkFactory
	if sinks == nil {
		sinks = capture.GIFFactory(a.exportDir, cfg.Export.Name, cfg.Export.Width, cfg.Derived.ExportDelay)
	}
	a.recorder = capture.NewRecorder(sinks, cfg.Export.FPS, cfg.Export.FrameBudget)
	a.recorder.OnFinish = a.onRecordingFinished

	f, err := field.New(params, field.Options{
		PixelRatio: a.clampPixelRatio(opts.PixelRatio),
		MaxCount:   cfg.Particles.MaxCount,
		Rand:       a.rng,
		Stage:      a.slot,
		Logger:     slog.Default().With("component", "field"),
		OnChange:   a.onChange,
	})
	if err != nil {
		a.eval.Close()
		output.Close()
		return nil, err
	}
	a.field = f

	if err := output.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config snapshot", "error", err)
	}

	slog.Info("field ready",
		"seed", seed,
		"count", params.Count,
		"radius", params.Radius,
		"color", params.Color.Hex(),
		"generation", f.Buffers().ID,
	)
	return a, nil
}

// Queue returns the control queue the panel and shortcuts push into.
func (a *App) Queue() *control.Queue { return &a.queue }

// ApplyControls applies queued parameter events, then runs queued actions.
// Actions the App does not own (panel visibility) are returned to the caller.
func (a *App) ApplyControls() []control.Action {
	if a.queue.Len() > 0 {
		if _, err := a.queue.Apply(a.field); err != nil {
			a.status = err.Error()
		}
	}

	var rest []control.Action
	for _, act := range a.queue.Actions() {
		switch act {
		case control.ActionToggleRecording:
			a.ToggleRecording()
		case control.ActionExportConfig:
			if _, err := a.ExportConfig(); err != nil {
				slog.Error("config export failed", "error", err)
				a.status = "config export failed: " + err.Error()
			}
		default:
			rest = append(rest, act)
		}
	}
	return rest
}

// Advance moves animation time forward by dt seconds. While recording, time
// follows the recorder's fixed clock instead.
func (a *App) Advance(dt float64) {
	if a.recorder.Recording() {
		a.field.Advance(a.recorder.FrameTime())
		return
	}
	a.elapsed += dt
	a.field.Advance(a.elapsed)
}

// Capture feeds a rendered frame to the recorder when recording.
func (a *App) Capture(img image.Image) {
	if !a.recorder.Recording() {
		return
	}
	if err := a.recorder.Feed(img); err != nil {
		slog.Error("capture failed", "error", err)
		a.status = "recording failed"
	}
}

// ToggleRecording starts a recording, or stops and saves the current one.
func (a *App) ToggleRecording() {
	if a.recorder.Recording() {
		_, _ = a.recorder.Stop()
		return
	}
	if err := a.recorder.Start(a.elapsed); err != nil {
		slog.Error("recording start failed", "error", err)
		a.status = "recording failed: " + err.Error()
		return
	}
	a.status = fmt.Sprintf("recording %d frames", a.recorder.Budget())
}

// ExportConfig writes the active parameters as JSON and returns the path.
func (a *App) ExportConfig() (string, error) {
	path, err := telemetry.ExportParams(a.exportDir, a.cfg.Export.ConfigFile, a.field.Params())
	if err != nil {
		return "", err
	}
	slog.Info("config exported", "path", path)
	a.status = "saved " + path
	return path, nil
}

// RenderSoftware rasterizes the current frame on the CPU.
func (a *App) RenderSoftware() *image.RGBA {
	w, h := int(a.camera.ViewportW), int(a.camera.ViewportH)
	if a.software == nil {
		a.software = raster.NewSoftware(w, h, a.background, a.eval)
	} else if sw, sh := a.software.Size(); sw != w || sh != h {
		a.software = raster.NewSoftware(w, h, a.background, a.eval)
	}
	return a.software.Render(a.scene, a.camera)
}

// StepHeadless runs one full frame without a window.
func (a *App) StepHeadless() *image.RGBA {
	a.perf.StartFrame()

	a.perf.StartPhase(telemetry.PhaseInput)
	a.ApplyControls()

	a.perf.StartPhase(telemetry.PhaseAdvance)
	a.Advance(a.cfg.Derived.FrameDT)

	a.perf.StartPhase(telemetry.PhaseRender)
	img := a.RenderSoftware()

	a.perf.StartPhase(telemetry.PhaseCapture)
	a.Capture(img)

	a.EndFrame()
	return img
}

// EndFrame closes the perf sample and logs periodically.
func (a *App) EndFrame() {
	a.perf.EndFrame()
	a.frame++

	interval := a.cfg.Telemetry.LogInterval
	now := float64(a.frame) * a.cfg.Derived.FrameDT
	if interval > 0 && now-a.lastLogAt >= interval {
		a.lastLogAt = now
		a.logPerf()
	}
}

func (a *App) logPerf() {
	stats := a.perf.Stats()
	stats.Particles = a.field.Params().Count
	slog.Info("perf", "frame", a.frame, "stats", stats)
	if err := a.output.WritePerf(stats, a.frame); err != nil {
		slog.Warn("failed to write perf", "error", err)
	}
}

// SetPixelRatio applies the device pixel ratio, clamped to screen.max_pixel_ratio.
func (a *App) SetPixelRatio(ratio float64) {
	a.field.SetPixelRatio(a.clampPixelRatio(ratio))
}

func (a *App) clampPixelRatio(ratio float64) float64 {
	if ratio <= 0 {
		ratio = 1
	}
	if limit := a.cfg.Screen.MaxPixelRatio; limit > 0 && ratio > limit {
		ratio = limit
	}
	return ratio
}

// Resize updates the camera aspect for a new viewport.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.camera.Resize(float32(w), float32(h))
}

// Zoom moves the camera by wheel notches; positive zooms in.
func (a *App) Zoom(notches float32) {
	if notches == 0 {
		return
	}
	a.camera.ZoomBy(float32(math.Pow(a.cfg.Camera.ZoomStep, float64(notches))))
}

func (a *App) onChange(c field.Change) {
	slog.Debug("parameter applied", "key", c.Key, "value", c.Value, "path", c.Path, "generation", c.Generation)
	if err := a.output.WriteParam(telemetry.NewParamRecord(a.frame, c)); err != nil {
		slog.Warn("failed to write param change", "error", err)
	}
}

func (a *App) onRecordingFinished(res capture.Result, err error) {
	// Keep animation time continuous with what was recorded.
	a.elapsed = a.recorder.FrameTime()
	a.lastResult = res
	if err != nil {
		a.status = "recording failed: " + err.Error()
		return
	}
	a.status = fmt.Sprintf("saved %s (%d frames)", res.Path, res.Frames)
}

// Close stops any recording and releases resources.
func (a *App) Close() error {
	var errs []error
	if a.recorder.Recording() {
		if _, err := a.recorder.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	a.field.Dispose()
	a.eval.Close()
	if err := a.output.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Accessors.

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Field() *field.Field { return a.field }
func (a *App) Scene() *scene.Scene { return a.scene }
func (a *App) Camera() *camera.Camera { return a.camera }
func (a *App) Evaluator() *raster.Evaluator { return a.eval }
func (a *App) Recorder() *capture.Recorder { return a.recorder }
func (a *App) Perf() *telemetry.PerfCollector { return a.perf }
func (a *App) Frame() int64 { return a.frame }
func (a *App) Elapsed() float64 { return a.elapsed }
func (a *App) Status() string { return a.status }
func (a *App) LastRecording() capture.Result { return a.lastResult }
