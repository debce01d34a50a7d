// Package field owns the particle buffers and routes parameter changes to
// either a full buffer rebuild or a per-frame uniform update.
package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// State is the field lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// Uniforms are the scalars shared by every particle in a frame.
type Uniforms struct {
	Time       float32 // elapsed seconds
	Size       float32 // point size, already multiplied by the pixel ratio
	Speed      float32
	Randomness float32 // displacement amplitude
}

// Stage receives the field's renderable. The scene implements it; a nil
// Stage means the field runs detached (tests, headless tools).
type Stage interface {
	Attach(buffers *BufferSet, uniforms *Uniforms)
	Swap(buffers *BufferSet)
	Detach()
}

// UpdatePath says how a parameter change was applied.
type UpdatePath string

const (
	PathUniform    UpdatePath = "uniform"
	PathRegenerate UpdatePath = "regenerate"
	PathIgnored    UpdatePath = "ignored"
)

// Change describes one applied SetParameter call.
type Change struct {
	Key        Key
	Value      string
	Path       UpdatePath
	Generation uuid.UUID // buffer generation live after the change
	Duration   time.Duration
}

// Options configures a Field.
type Options struct {
	PixelRatio float64    // multiplies the size uniform; 0 means 1
	MaxCount   int        // upper bound for count; 0 disables the bound
	Rand       *rand.Rand // nil seeds from the clock
	Stage      Stage
	Logger     *slog.Logger
	OnChange   func(Change)
}

// Field is the particle field: it owns the buffer set and uniforms.
// It is not safe for concurrent use; callers drive it from the render loop.
type Field struct {
	params   Params
	buffers  *BufferSet
	uniforms *Uniforms
	state    State

	pixelRatio float64
	maxCount   int
	rng        *rand.Rand
	stage      Stage
	log        *slog.Logger
	onChange   func(Change)
}

// New creates a field and performs the initial regenerate, leaving it Ready.
func New(params Params, opts Options) (*Field, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ratio := opts.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}

	f := &Field{
		uniforms:   &Uniforms{},
		pixelRatio: ratio,
		maxCount:   opts.MaxCount,
		rng:        rng,
		stage:      opts.Stage,
		log:        logger,
		onChange:   opts.OnChange,
	}

	if err := f.Regenerate(params); err != nil {
		return nil, err
	}
	return f, nil
}

// Regenerate replaces the configuration wholesale and rebuilds every buffer.
// The new set is fully built before it is exposed; on error the previous
// set and parameters remain live.
func (f *Field) Regenerate(params Params) error {
	if err := params.Validate(f.maxCount); err != nil {
		return err
	}

	set, err := generate(params, f.rng)
	if err != nil {
		return err
	}

	old := f.buffers
	f.params = params
	f.buffers = set
	f.pushUniforms()

	if f.stage != nil {
		if f.state == StateReady {
			f.stage.Swap(set)
		} else {
			f.stage.Attach(set, f.uniforms)
		}
	}
	f.state = StateReady
	old.Release()

	if f.log.Enabled(context.Background(), slog.LevelDebug) {
		f.log.Debug("particle buffers regenerated",
			"generation", set.ID,
			"count", set.Count,
			"summary", Summarize(set, params.Radius),
		)
	}
	return nil
}

// SetParameter merges value into the configuration at key and applies it by
// the cheapest valid path: a uniform push for UniformKeys, a full regenerate
// for RegenerateKeys. Unknown keys are logged and ignored. Invalid values are
// rejected and leave the field unchanged. A disposed field returns ErrNotReady
// until Regenerate brings it back.
func (f *Field) SetParameter(key Key, value any) error {
	start := time.Now()
	if f.state != StateReady {
		return fmt.Errorf("%w: set %s in state %s", ErrNotReady, key, f.state)
	}

	_, regen := RegenerateKeys[key]
	_, uniform := UniformKeys[key]
	if !regen && !uniform {
		f.log.Warn("ignoring unknown particle parameter", "key", string(key), "value", value)
		f.notify(Change{Key: key, Value: fmt.Sprint(value), Path: PathIgnored, Duration: time.Since(start)})
		return nil
	}

	merged, err := f.params.With(key, value)
	if err != nil {
		return err
	}
	if err := merged.Validate(f.maxCount); err != nil {
		return err
	}

	path := PathUniform
	if regen {
		path = PathRegenerate
		if err := f.Regenerate(merged); err != nil {
			if errors.Is(err, ErrBufferAllocation) {
				f.log.Error("keeping previous particle buffers", "key", string(key), "error", err)
			}
			return err
		}
	} else {
		f.params = merged
		f.pushUniforms()
	}

	f.notify(Change{
		Key:        key,
		Value:      merged.Value(key),
		Path:       path,
		Generation: f.generation(),
		Duration:   time.Since(start),
	})
	return nil
}

// Advance pushes the elapsed time into the time uniform.
func (f *Field) Advance(elapsed float64) {
	f.uniforms.Time = float32(elapsed)
}

// SetPixelRatio changes the device pixel scale and refreshes the size uniform.
func (f *Field) SetPixelRatio(ratio float64) {
	if ratio <= 0 {
		ratio = 1
	}
	f.pixelRatio = ratio
	f.pushUniforms()
}

// Dispose detaches the field from its stage and releases the buffers.
func (f *Field) Dispose() {
	if f.state != StateReady {
		return
	}
	if f.stage != nil {
		f.stage.Detach()
	}
	f.buffers.Release()
	f.buffers = nil
	f.state = StateUninitialized
}

// Params returns the current configuration.
func (f *Field) Params() Params { return f.params }

// Buffers returns the live buffer set. The caller must not modify it.
func (f *Field) Buffers() *BufferSet { return f.buffers }

// Uniforms returns the current uniform values.
func (f *Field) Uniforms() Uniforms { return *f.uniforms }

// State returns the lifecycle state.
func (f *Field) State() State { return f.state }

// pushUniforms copies the uniform-backed parameters into the uniform block.
func (f *Field) pushUniforms() {
	f.uniforms.Size = float32(f.params.Size * f.pixelRatio)
	f.uniforms.Speed = float32(f.params.Speed)
	f.uniforms.Randomness = float32(f.params.Randomness)
}

// generation returns the live buffer set's id, or uuid.Nil without one.
func (f *Field) generation() uuid.UUID {
	if f.buffers == nil {
		return uuid.Nil
	}
	return f.buffers.ID
}

func (f *Field) notify(c Change) {
	if f.onChange != nil {
		f.onChange(c)
	}
}
