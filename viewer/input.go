package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/nebula/control"
)

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	q := v.app.Queue()
	if rl.IsKeyPressed(rl.KeyR) {
		q.Request(control.ActionToggleRecording)
	}
	if rl.IsKeyPressed(rl.KeyE) {
		q.Request(control.ActionExportConfig)
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		q.Request(control.ActionTogglePanel)
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPerf = !v.showPerf
	}

	v.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h

	v.app.Resize(int(w), int(h))
	v.perfPanel.SetPosition(w-260, 90)
}

// handleCameraInput processes zoom controls.
func (v *Viewer) handleCameraInput() {
	// Scrolling over the panel belongs to the panel.
	if v.panel.Contains(rl.GetMousePosition()) {
		return
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.app.Zoom(wheel)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.app.Zoom(1)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.app.Zoom(-1)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.app.Camera().Reset()
	}
}
