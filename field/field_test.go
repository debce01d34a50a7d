package field

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
)

// recordingStage records the calls the field makes on its stage.
type recordingStage struct {
	attached *BufferSet
	uniforms *Uniforms
	swaps    int
	detached bool
}

func (s *recordingStage) Attach(b *BufferSet, u *Uniforms) {
	s.attached = b
	s.uniforms = u
}

func (s *recordingStage) Swap(b *BufferSet) {
	s.attached = b
	s.swaps++
}

func (s *recordingStage) Detach() {
	s.attached = nil
	s.detached = true
}

func newTestField(t *testing.T, p Params, opts Options) *Field {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	f, err := New(p, opts)
	if err != nil {
		t.Fatalf("creating field: %v", err)
	}
	return f
}

func assertWithinRadius(t *testing.T, b *BufferSet, radius float64) {
	t.Helper()
	const eps = 1e-4
	for i := 0; i < b.Count; i++ {
		if r := float64(b.Position(i).Len()); r > radius+eps {
			t.Fatalf("particle %d at distance %v outside radius %v", i, r, radius)
		}
	}
}

func assertShape(t *testing.T, b *BufferSet, count int) {
	t.Helper()
	if b.Count != count {
		t.Errorf("expected Count %d, got %d", count, b.Count)
	}
	if len(b.Positions) != count*3 {
		t.Errorf("expected %d position floats, got %d", count*3, len(b.Positions))
	}
	if len(b.Colors) != count*3 {
		t.Errorf("expected %d color floats, got %d", count*3, len(b.Colors))
	}
	if len(b.Scales) != count {
		t.Errorf("expected %d scales, got %d", count, len(b.Scales))
	}
	if len(b.Randomness) != count*3 {
		t.Errorf("expected %d randomness floats, got %d", count*3, len(b.Randomness))
	}
}

func TestNewIsReady(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{})

	if f.State() != StateReady {
		t.Errorf("expected ready state, got %s", f.State())
	}
	if f.Buffers() == nil {
		t.Fatal("expected buffers after construction")
	}
}

func TestRegenerateBufferShape(t *testing.T) {
	tests := []struct {
		count  int
		radius float64
	}{
		{1, 1},
		{100, 0.5},
		{2500, 10},
		{10000, 50},
	}

	f := newTestField(t, DefaultParams(), Options{})
	for _, tt := range tests {
		p := DefaultParams()
		p.Count = tt.count
		p.Radius = tt.radius
		if err := f.Regenerate(p); err != nil {
			t.Fatalf("regenerate(%d, %v): %v", tt.count, tt.radius, err)
		}

		b := f.Buffers()
		assertShape(t, b, tt.count)
		assertWithinRadius(t, b, tt.radius)

		for i := 0; i < b.Count; i++ {
			if s := b.Scale(i); s < 0 || s >= 1 {
				t.Fatalf("scale %v out of [0,1)", s)
			}
			rv := b.RandomVector(i)
			for _, c := range rv {
				if c < -1 || c >= 1 {
					t.Fatalf("random vector component %v out of [-1,1)", c)
				}
			}
		}
	}
}

func TestUniformKeysKeepBuffers(t *testing.T) {
	tests := []struct {
		key   Key
		value any
		check func(Uniforms) bool
	}{
		{KeySize, 2.0, func(u Uniforms) bool { return u.Size == 2.0 }},
		{KeySpeed, 3.5, func(u Uniforms) bool { return u.Speed == 3.5 }},
		{KeyRandomness, 1.25, func(u Uniforms) bool { return u.Randomness == 1.25 }},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			f := newTestField(t, DefaultParams(), Options{})
			before := f.Buffers()
			id := before.ID

			if err := f.SetParameter(tt.key, tt.value); err != nil {
				t.Fatalf("SetParameter: %v", err)
			}

			if f.Buffers() != before || f.Buffers().ID != id {
				t.Error("expected buffer set to be unchanged")
			}
			if before.Released() {
				t.Error("live buffer set was released")
			}
			if !tt.check(f.Uniforms()) {
				t.Errorf("uniform not updated: %+v", f.Uniforms())
			}
		})
	}
}

func TestRegenerateKeysReplaceBuffers(t *testing.T) {
	tests := []struct {
		key   Key
		value any
	}{
		{KeyCount, 500},
		{KeyRadius, 25.0},
		{KeyColor, "#ff8800"},
		// Same value still regenerates
		{KeyCount, 10000},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			f := newTestField(t, DefaultParams(), Options{})
			before := f.Buffers()

			if err := f.SetParameter(tt.key, tt.value); err != nil {
				t.Fatalf("SetParameter: %v", err)
			}

			after := f.Buffers()
			if after == before || after.ID == before.ID {
				t.Error("expected a new buffer set")
			}
			if !before.Released() {
				t.Error("expected previous buffer set to be released")
			}
			assertShape(t, after, f.Params().Count)
		})
	}
}

func TestSeededRegenerateIsDeterministic(t *testing.T) {
	a := newTestField(t, DefaultParams(), Options{Rand: rand.New(rand.NewSource(7))})
	b := newTestField(t, DefaultParams(), Options{Rand: rand.New(rand.NewSource(7))})

	ba, bb := a.Buffers(), b.Buffers()
	assertShape(t, bb, ba.Count)
	for i := range ba.Positions {
		if ba.Positions[i] != bb.Positions[i] {
			t.Fatalf("positions differ at %d: %v vs %v", i, ba.Positions[i], bb.Positions[i])
		}
	}
	for i := range ba.Scales {
		if ba.Scales[i] != bb.Scales[i] {
			t.Fatalf("scales differ at %d", i)
		}
	}

	// A second regenerate with the same config keeps the shape
	if err := a.Regenerate(a.Params()); err != nil {
		t.Fatal(err)
	}
	assertShape(t, a.Buffers(), ba.Count)
}

func TestEndToEndScenario(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{})

	assertShape(t, f.Buffers(), 10000)
	assertWithinRadius(t, f.Buffers(), 10)

	if err := f.SetParameter(KeyCount, 2000); err != nil {
		t.Fatalf("set count: %v", err)
	}
	assertShape(t, f.Buffers(), 2000)

	counted := f.Buffers()
	if err := f.SetParameter(KeySpeed, 4.0); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	if f.Buffers() != counted {
		t.Error("speed change replaced the buffers")
	}
	assertShape(t, f.Buffers(), 2000)
	if f.Uniforms().Speed != 4.0 {
		t.Errorf("expected speed uniform 4.0, got %v", f.Uniforms().Speed)
	}

	if err := f.SetParameter(KeyColor, "#ff0000"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	b := f.Buffers()
	assertShape(t, b, 2000)
	for i := 0; i < b.Count; i++ {
		c := b.Color(i)
		if c[0] != 1 || c[1] != 0 || c[2] != 0 {
			t.Fatalf("particle %d color %v, expected (1,0,0)", i, c)
		}
	}
}

func TestConfigExportScenario(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{})
	for _, step := range []struct {
		key   Key
		value any
	}{
		{KeyCount, 2000},
		{KeySpeed, 4.0},
		{KeyColor, "#ff0000"},
	} {
		if err := f.SetParameter(step.key, step.value); err != nil {
			t.Fatalf("SetParameter(%s): %v", step.key, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Params().WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding export: %v", err)
	}

	if len(got) != len(Keys) {
		t.Errorf("expected %d keys, got %d: %v", len(Keys), len(got), got)
	}
	want := map[string]any{
		"count":      2000.0,
		"speed":      4.0,
		"color":      "#ff0000",
		"size":       0.5,
		"radius":     10.0,
		"randomness": 0.5,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %s: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestInvalidValuesLeaveFieldUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		key   Key
		value any
	}{
		{"zero count", KeyCount, 0},
		{"negative count", KeyCount, -5},
		{"nan count", KeyCount, math.NaN()},
		{"inf count", KeyCount, math.Inf(1)},
		{"fractional count", KeyCount, 2.4},
		{"zero radius", KeyRadius, 0.0},
		{"negative radius", KeyRadius, -1.0},
		{"zero size", KeySize, 0.0},
		{"negative speed", KeySpeed, -0.1},
		{"negative randomness", KeyRandomness, -1.0},
		{"malformed color", KeyColor, "#zzzzzz"},
		{"numeric color", KeyColor, 12},
		{"string count", KeyCount, "many"},
		{"bool speed", KeySpeed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestField(t, DefaultParams(), Options{})
			before := f.Buffers()
			params := f.Params()
			uniforms := f.Uniforms()

			err := f.SetParameter(tt.key, tt.value)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			if f.Buffers() != before || before.Released() {
				t.Error("buffers changed after rejected value")
			}
			if f.Params() != params {
				t.Errorf("params changed: %+v -> %+v", params, f.Params())
			}
			if f.Uniforms() != uniforms {
				t.Errorf("uniforms changed: %+v -> %+v", uniforms, f.Uniforms())
			}
		})
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.Count = 0
	if _, err := New(p, Options{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}

	p = DefaultParams()
	p.Radius = 0
	if _, err := New(p, Options{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestUnknownKeyIsNoop(t *testing.T) {
	var changes []Change
	f := newTestField(t, DefaultParams(), Options{OnChange: func(c Change) { changes = append(changes, c) }})
	before := f.Buffers()
	params := f.Params()

	if err := f.SetParameter("gravity", 9.8); err != nil {
		t.Fatalf("expected nil error for unknown key, got %v", err)
	}
	if f.Buffers() != before || f.Params() != params {
		t.Error("unknown key changed field state")
	}
	if len(changes) != 1 || changes[0].Path != PathIgnored {
		t.Errorf("expected one ignored change, got %+v", changes)
	}
}

func TestCountLimitKeepsBuffers(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{MaxCount: 20000})
	before := f.Buffers()

	err := f.SetParameter(KeyCount, 50000)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if f.Buffers() != before || before.Released() {
		t.Error("previous buffers not kept after rejected count")
	}
	if f.Params().Count != 10000 {
		t.Errorf("expected count to stay 10000, got %d", f.Params().Count)
	}
}

func TestAllocationFailureKeepsBuffers(t *testing.T) {
	stage := &recordingStage{}
	f := newTestField(t, DefaultParams(), Options{Stage: stage})
	before := f.Buffers()

	p := DefaultParams()
	p.Count = math.MaxInt / 2 // count*3 overflows the slice length
	err := f.Regenerate(p)
	if !errors.Is(err, ErrBufferAllocation) {
		t.Fatalf("expected ErrBufferAllocation, got %v", err)
	}
	if f.Buffers() != before || before.Released() {
		t.Error("previous buffers not kept after allocation failure")
	}
	if stage.attached != before {
		t.Error("stage lost the previous buffers")
	}
	if f.Params().Count != 10000 {
		t.Errorf("expected params to roll back, got count %d", f.Params().Count)
	}
}

func TestStageLifecycle(t *testing.T) {
	stage := &recordingStage{}
	f := newTestField(t, DefaultParams(), Options{Stage: stage})

	if stage.attached != f.Buffers() {
		t.Fatal("expected initial buffers attached")
	}
	if stage.uniforms == nil {
		t.Fatal("expected uniforms attached")
	}

	if err := f.SetParameter(KeyRadius, 20.0); err != nil {
		t.Fatal(err)
	}
	if stage.swaps != 1 || stage.attached != f.Buffers() {
		t.Errorf("expected one swap to the new buffers, got %d", stage.swaps)
	}

	if err := f.SetParameter(KeySize, 1.0); err != nil {
		t.Fatal(err)
	}
	if stage.swaps != 1 {
		t.Errorf("size change swapped buffers")
	}

	// Uniform writes are visible through the attached pointer
	f.Advance(12.5)
	if stage.uniforms.Time != 12.5 {
		t.Errorf("expected time uniform 12.5, got %v", stage.uniforms.Time)
	}

	f.Dispose()
	if !stage.detached {
		t.Error("expected detach on dispose")
	}
	if f.State() != StateUninitialized {
		t.Errorf("expected uninitialized after dispose, got %s", f.State())
	}
}

func TestSetParameterAfterDispose(t *testing.T) {
	for _, key := range []Key{KeySize, KeySpeed, KeyCount, KeyColor} {
		t.Run(string(key), func(t *testing.T) {
			var changes []Change
			stage := &recordingStage{}
			f := newTestField(t, DefaultParams(), Options{
				Stage:    stage,
				OnChange: func(c Change) { changes = append(changes, c) },
			})
			f.Dispose()

			value := map[Key]any{KeySize: 1.0, KeySpeed: 2.0, KeyCount: 300, KeyColor: "#ff0000"}[key]
			err := f.SetParameter(key, value)
			if !errors.Is(err, ErrNotReady) {
				t.Fatalf("expected ErrNotReady, got %v", err)
			}
			if f.Buffers() != nil || f.State() != StateUninitialized {
				t.Error("rejected change revived the field")
			}
			if len(changes) != 0 {
				t.Errorf("expected no change notifications, got %d", len(changes))
			}
		})
	}

	// Regenerate brings a disposed field back
	stage := &recordingStage{}
	f := newTestField(t, DefaultParams(), Options{Stage: stage})
	f.Dispose()
	if err := f.Regenerate(DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateReady || stage.attached != f.Buffers() {
		t.Fatal("expected regenerate to reattach live buffers")
	}
	if err := f.SetParameter(KeySize, 1.0); err != nil {
		t.Errorf("SetParameter after regenerate: %v", err)
	}
}

func TestSizeUniformUsesPixelRatio(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{PixelRatio: 2})

	if got := f.Uniforms().Size; got != 1.0 {
		t.Errorf("expected size uniform 0.5*2 = 1.0, got %v", got)
	}

	if err := f.SetParameter(KeySize, 1.5); err != nil {
		t.Fatal(err)
	}
	if got := f.Uniforms().Size; got != 3.0 {
		t.Errorf("expected size uniform 3.0, got %v", got)
	}

	f.SetPixelRatio(1)
	if got := f.Uniforms().Size; got != 1.5 {
		t.Errorf("expected size uniform 1.5 after ratio change, got %v", got)
	}
}

func TestAdvanceOnlyTouchesTime(t *testing.T) {
	f := newTestField(t, DefaultParams(), Options{})
	before := f.Uniforms()
	buffers := f.Buffers()

	f.Advance(3.25)

	after := f.Uniforms()
	if after.Time != 3.25 {
		t.Errorf("expected time 3.25, got %v", after.Time)
	}
	after.Time = before.Time
	if after != before || f.Buffers() != buffers {
		t.Error("advance changed more than the time uniform")
	}
}

func TestChangeNotifications(t *testing.T) {
	var changes []Change
	f := newTestField(t, DefaultParams(), Options{OnChange: func(c Change) { changes = append(changes, c) }})

	_ = f.SetParameter(KeySpeed, 2.0)
	_ = f.SetParameter(KeyCount, 300)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Path != PathUniform || changes[0].Value != "2" {
		t.Errorf("unexpected speed change: %+v", changes[0])
	}
	if changes[1].Path != PathRegenerate || changes[1].Generation != f.Buffers().ID {
		t.Errorf("unexpected count change: %+v", changes[1])
	}
}

func TestKeySetsAreDisjointAndComplete(t *testing.T) {
	for _, k := range Keys {
		_, regen := RegenerateKeys[k]
		_, uniform := UniformKeys[k]
		if regen == uniform {
			t.Errorf("key %s must be in exactly one update set", k)
		}
	}
}
