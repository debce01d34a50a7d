// Package viewer runs the interactive window: input, the point renderer,
// the control panel and screen capture for recordings.
package viewer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/app"
	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/control"
	"github.com/pthm-cable/nebula/field"
	"github.com/pthm-cable/nebula/renderer"
	"github.com/pthm-cable/nebula/scene"
	"github.com/pthm-cable/nebula/telemetry"
	"github.com/pthm-cable/nebula/ui"
)

const panelWidth = 240

const controlsLegend = "[R] record  [E] export config  [Tab] panel  [wheel] zoom  [Home] reset view"

// pointDrawer draws the scene's point clouds.
type pointDrawer interface {
	Draw(sc *scene.Scene, cam *camera.Camera)
	Unload()
}

// Viewer drives an App from a raylib window.
type Viewer struct {
	app *app.App

	points    pointDrawer
	panel     *ui.ControlsPanel
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	showPerf  bool

	screenWidth, screenHeight int32
}

// New creates a viewer. The raylib window must already be open.
func New(a *app.App) *Viewer {
	cfg := a.Config()
	bg, err := field.ParseColor(cfg.Render.Background)
	if err != nil {
		// Already validated by app.New.
		bg = field.Color{}
	}

	v := &Viewer{
		app:          a,
		points:       newPointDrawer(a, mgl32.Vec3{bg.R, bg.G, bg.B}),
		panel:        ui.NewControlsPanel(10, 10, panelWidth, a.Field().Params()),
		hud:          ui.NewHUD(),
		perfPanel:    ui.NewPerfPanel(10, 0),
		screenWidth:  int32(rl.GetScreenWidth()),
		screenHeight: int32(rl.GetScreenHeight()),
	}
	v.perfPanel.SetPosition(v.screenWidth-260, 90)

	// With FlagWindowHighdpi raylib scales logical drawing to the framebuffer,
	// so sprites stay at pixel ratio 1 here.
	a.Resize(int(v.screenWidth), int(v.screenHeight))
	return v
}

// newPointDrawer picks the shader renderer when enabled and it compiles,
// otherwise sprites evaluated on the CPU worker pool.
func newPointDrawer(a *app.App, bg mgl32.Vec3) pointDrawer {
	cfg := a.Config()
	if cfg.Render.GPU {
		g := renderer.NewGPUPointRenderer(bg)
		if g.Init() {
			return g
		}
	}
	p := renderer.NewPointRenderer(cfg.Render.SpriteSize, bg, a.Evaluator())
	p.Init()
	return p
}

// Update processes input and control events and advances animation time.
func (v *Viewer) Update() {
	perf := v.app.Perf()
	perf.StartFrame()

	perf.StartPhase(telemetry.PhaseInput)
	v.handleInput()
	for _, act := range v.app.ApplyControls() {
		if act == control.ActionTogglePanel {
			v.panel.Toggle()
		}
	}
	v.panel.Sync(v.app.Field().Params())

	perf.StartPhase(telemetry.PhaseAdvance)
	v.app.Advance(float64(rl.GetFrameTime()))
}

// Draw renders the frame, the overlay, and feeds the recorder.
func (v *Viewer) Draw() {
	perf := v.app.Perf()
	perf.StartPhase(telemetry.PhaseRender)

	rl.BeginDrawing()
	v.points.Draw(v.app.Scene(), v.app.Camera())

	// Recordings capture the particles only, before the overlay is drawn.
	perf.StartPhase(telemetry.PhaseCapture)
	if v.app.Recorder().Recording() {
		v.captureScreen()
	}

	perf.StartPhase(telemetry.PhaseRender)
	v.drawOverlay()
	rl.EndDrawing()

	v.app.EndFrame()
}

func (v *Viewer) drawOverlay() {
	rec := v.app.Recorder()
	v.panel.Draw(v.app.Field().Params(), rec.Recording(), v.app.Queue())

	v.hud.Draw(ui.HUDData{
		Title:        "Nebula",
		Particles:    v.app.Field().Params().Count,
		FPS:          rl.GetFPS(),
		Recording:    rec.Recording(),
		RecordFrames: rec.Frames(),
		RecordBudget: rec.Budget(),
		Status:       v.app.Status(),
		ScreenWidth:  v.screenWidth,
		ScreenHeight: v.screenHeight,
	})
	if v.showPerf {
		v.perfPanel.Draw(v.app.Perf().Stats())
	}
	v.hud.DrawControls(v.screenHeight, controlsLegend)
}

// captureScreen reads back the framebuffer and feeds it to the recorder.
func (v *Viewer) captureScreen() {
	img := rl.LoadImageFromScreen()
	defer rl.UnloadImage(img)
	v.app.Capture(img.ToImage())
}

// Unload frees GPU resources and closes the app.
func (v *Viewer) Unload() {
	v.points.Unload()
	if err := v.app.Close(); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
