// Package control turns panel input into discrete parameter events and
// applies them to a particle field, one SetParameter per event.
package control

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/nebula/field"
)

// Event is a single parameter change from the control panel.
type Event struct {
	Key   field.Key
	Value any
}

func (e Event) String() string {
	return fmt.Sprintf("%s=%v", e.Key, e.Value)
}

// Action is a non-parameter request from the panel or a shortcut.
type Action uint8

const (
	ActionToggleRecording Action = iota + 1
	ActionExportConfig
	ActionTogglePanel
)

func (a Action) String() string {
	switch a {
	case ActionToggleRecording:
		return "toggle_recording"
	case ActionExportConfig:
		return "export_config"
	case ActionTogglePanel:
		return "toggle_panel"
	default:
		return "unknown"
	}
}

// Target receives parameter changes.
type Target interface {
	SetParameter(key field.Key, value any) error
}

// Queue collects events and actions produced during one frame.
type Queue struct {
	events  []Event
	actions []Action
}

// Push enqueues a parameter event.
func (q *Queue) Push(e Event) { q.events = append(q.events, e) }

// Request enqueues an action. Repeated requests in one frame collapse.
func (q *Queue) Request(a Action) {
	for _, existing := range q.actions {
		if existing == a {
			return
		}
	}
	q.actions = append(q.actions, a)
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.events) }

// Actions returns pending actions and clears them.
func (q *Queue) Actions() []Action {
	out := q.actions
	q.actions = nil
	return out
}

// Apply sends every pending event to t in order and clears the queue.
// A rejected event does not stop later ones; all errors are joined.
func (q *Queue) Apply(t Target) (applied int, err error) {
	var errs []error
	for _, e := range q.events {
		if setErr := t.SetParameter(e.Key, e.Value); setErr != nil {
			slog.Warn("parameter rejected", "event", e.String(), "error", setErr)
			errs = append(errs, fmt.Errorf("%s: %w", e.Key, setErr))
			continue
		}
		applied++
	}
	q.events = q.events[:0]
	return applied, errors.Join(errs...)
}

// SliderSpec describes a numeric slider on the panel.
type SliderSpec struct {
	Key    field.Key
	Label  string
	Min    float64
	Max    float64
	Step   float64
	Format string
}

// Sliders lists the panel's numeric sliders in display order.
var Sliders = []SliderSpec{
	{Key: field.KeyCount, Label: "Count", Min: 100, Max: 50000, Step: 100, Format: "%.0f"},
	{Key: field.KeySize, Label: "Size", Min: 0.1, Max: 5, Step: 0.1, Format: "%.1f"},
	{Key: field.KeySpeed, Label: "Speed", Min: 0, Max: 5, Step: 0.1, Format: "%.1f"},
	{Key: field.KeyRadius, Label: "Radius", Min: 1, Max: 50, Step: 1, Format: "%.0f"},
}

// Quantize clamps v to the slider range and snaps it to the step grid.
func (s SliderSpec) Quantize(v float64) float64 {
	if math.IsNaN(v) {
		return s.Min
	}
	if v < s.Min {
		v = s.Min
	}
	if v > s.Max {
		v = s.Max
	}
	if s.Step > 0 {
		steps := math.Round((v - s.Min) / s.Step)
		// Rounded to 1e-6 so 0.1 steps compare and print cleanly.
		v = math.Round((s.Min+steps*s.Step)*1e6) / 1e6
	}
	if v > s.Max {
		v = s.Max
	}
	return v
}

// Event builds the event for a quantized slider value.
func (s SliderSpec) Event(v float64) Event {
	q := s.Quantize(v)
	if s.Key == field.KeyCount {
		return Event{Key: s.Key, Value: int(q)}
	}
	return Event{Key: s.Key, Value: q}
}

// Display formats a value for the panel.
func (s SliderSpec) Display(v float64) string {
	return fmt.Sprintf(s.Format, v)
}

// Current reads the slider's value from params.
func (s SliderSpec) Current(p field.Params) float64 {
	v, _ := Numeric(p, s.Key)
	return v
}

// Numeric returns the numeric value of key in p.
func Numeric(p field.Params, key field.Key) (float64, bool) {
	switch key {
	case field.KeyCount:
		return float64(p.Count), true
	case field.KeySize:
		return p.Size, true
	case field.KeySpeed:
		return p.Speed, true
	case field.KeyRadius:
		return p.Radius, true
	case field.KeyRandomness:
		return p.Randomness, true
	}
	return 0, false
}

// SliderTracker emits an event only when a slider settles on a new step.
type SliderTracker struct {
	last map[field.Key]float64
}

// NewSliderTracker seeds the tracker from params.
func NewSliderTracker(p field.Params) *SliderTracker {
	t := &SliderTracker{last: make(map[field.Key]float64, len(Sliders))}
	t.Sync(p)
	return t
}

// Sync resets the remembered values to params.
func (t *SliderTracker) Sync(p field.Params) {
	for _, s := range Sliders {
		t.last[s.Key] = s.Current(p)
	}
}

// Observe records a raw slider value and reports whether it changed step.
func (t *SliderTracker) Observe(s SliderSpec, raw float64) (Event, bool) {
	q := s.Quantize(raw)
	if prev, ok := t.last[s.Key]; ok && math.Abs(prev-q) < s.Step/2 {
		return Event{}, false
	}
	t.last[s.Key] = q
	return s.Event(q), true
}

// ColorEvent reports a color change when next differs from prev at 8-bit precision.
func ColorEvent(prev, next field.Color) (Event, bool) {
	if prev.Hex() == next.Hex() {
		return Event{}, false
	}
	return Event{Key: field.KeyColor, Value: next.Hex()}, true
}
