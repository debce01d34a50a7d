package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/nebula/control"
	"github.com/pthm-cable/nebula/field"
)

const pickerHeight = 120

// ControlsPanel renders the parameter panel and turns widget changes into
// control events.
type ControlsPanel struct {
	renderer *Renderer
	tracker  *control.SliderTracker
	x, y     int32
	width    int32
	visible  bool
	height   int32
}

// NewControlsPanel creates a new controls panel seeded from params.
func NewControlsPanel(x, y, width int32, params field.Params) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		tracker:  control.NewSliderTracker(params),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetVisible shows or hides the panel.
func (c *ControlsPanel) SetVisible(visible bool) {
	c.visible = visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// SetPosition moves the panel, e.g. after a window resize.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Sync realigns the sliders with params after events were applied or rejected.
func (c *ControlsPanel) Sync(params field.Params) {
	c.tracker.Sync(params)
}

// Contains reports whether a screen point is over the visible panel.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(p, rl.Rectangle{
		X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height),
	})
}

// Draw renders the panel and queues an event for every widget that changed.
func (c *ControlsPanel) Draw(params field.Params, recording bool, q *control.Queue) {
	if !c.visible {
		return
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight
	inner := c.width - padding*2

	rows := int32(len(control.Sliders))
	c.height = padding*2 + lineHeight + 4 +
		rows*(lineHeight+r.Theme.SliderHeight+6) +
		lineHeight + pickerHeight + 8 +
		2*(r.Theme.ButtonHeight+6)

	r.DrawPanel(c.x, c.y, c.width, c.height)

	x := c.x + padding
	y := c.y + padding
	y = r.DrawSectionHeader(x, y, "Particles")

	for _, s := range control.Sliders {
		current := s.Current(params)
		y = r.DrawLabelValue(x, y, s.Label, s.Display(current))

		bounds := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(inner), Height: float32(r.Theme.SliderHeight)}
		raw := gui.SliderBar(bounds, "", "", float32(current), float32(s.Min), float32(s.Max))
		if ev, ok := c.tracker.Observe(s, float64(raw)); ok {
			q.Push(ev)
		}
		y += r.Theme.SliderHeight + 6
	}

	y = r.DrawColorSwatch(x, y, "Color", ToRLColor(params.Color))
	// The picker leaves room on the right for its hue bar.
	picker := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(inner - 30), Height: pickerHeight}
	picked := gui.ColorPicker(picker, "", ToRLColor(params.Color))
	// Only a drag inside the picker counts; its HSV round trip can drift by one step.
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && rl.CheckCollisionPointRec(rl.GetMousePosition(), picker) {
		if ev, ok := control.ColorEvent(params.Color, FromRLColor(picked)); ok {
			q.Push(ev)
		}
	}
	y += pickerHeight + 8

	recordLabel := "Export Video"
	if recording {
		recordLabel = "Stop Recording"
	}
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(inner), Height: float32(r.Theme.ButtonHeight)}, recordLabel) {
		q.Request(control.ActionToggleRecording)
	}
	y += r.Theme.ButtonHeight + 6

	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(inner), Height: float32(r.Theme.ButtonHeight)}, "Export Config") {
		q.Request(control.ActionExportConfig)
	}
}
