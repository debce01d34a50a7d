package motion

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testView() View {
	return View{
		ModelView:  mgl32.LookAtV(mgl32.Vec3{0, 0, 30}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Projection: mgl32.Perspective(mgl32.DegToRad(75), 16.0/9.0, 0.1, 100),
	}
}

func TestDisplaceAtRest(t *testing.T) {
	base := mgl32.Vec3{0, 2, 3}
	rnd := mgl32.Vec3{1, -1, 0.5}

	// sin(0*speed + 0*0.5) = 0
	got := Displace(base, rnd, 0, 1, 0.5)
	assert.True(t, got.ApproxEqual(base), "expected no displacement, got %v", got)
}

func TestDisplaceFollowsSine(t *testing.T) {
	base := mgl32.Vec3{1, 0, 0}
	rnd := mgl32.Vec3{1, 0.5, -1}
	time, speed := float32(2), float32(1.5)

	wave := float32(math.Sin(float64(time*speed + base.X()*PhaseScale)))
	want := base.Add(rnd.Mul(wave * 0.5))

	got := Displace(base, rnd, time, speed, 0.5)
	assert.True(t, got.ApproxEqualThreshold(want, 1e-5), "got %v want %v", got, want)
}

func TestDisplaceBoundedByAmplitude(t *testing.T) {
	base := mgl32.Vec3{3, -2, 1}
	rnd := mgl32.Vec3{0.9, -0.7, 0.3}
	for _, tm := range []float32{0, 0.3, 1.7, 10, 123.4} {
		got := Displace(base, rnd, tm, 2, 0.5)
		assert.LessOrEqual(t, got.Sub(base).Len(), rnd.Len()*0.5+1e-5)
	}
}

func TestDisplaceZeroSpeedIsStatic(t *testing.T) {
	base := mgl32.Vec3{4, 1, -1}
	rnd := mgl32.Vec3{1, 1, 1}

	a := Displace(base, rnd, 0, 0, 0.5)
	b := Displace(base, rnd, 99, 0, 0.5)
	assert.Equal(t, a, b)
}

func TestDisplacePhaseDependsOnX(t *testing.T) {
	rnd := mgl32.Vec3{0, 1, 0}
	a := Displace(mgl32.Vec3{0, 0, 0}, rnd, 1, 1, 0.5)
	b := Displace(mgl32.Vec3{2, 0, 0}, rnd, 1, 1, 0.5)
	assert.NotEqual(t, a.Y(), b.Y(), "particles at different x should be out of phase")
}

func TestPointSize(t *testing.T) {
	tests := []struct {
		name              string
		size, scale, eyeZ float32
		want              float32
	}{
		{"reference depth", 1, 1, -100, 1},
		{"closer is bigger", 1, 1, -50, 2},
		{"scaled", 0.5, 0.5, -25, 1},
		{"zero scale", 1, 0, -10, 0},
		{"behind camera", 1, 1, 5, 0},
		{"on camera plane", 1, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PointSize(tt.size, tt.scale, tt.eyeZ), 1e-6)
		})
	}
}

func TestEvaluateOrigin(t *testing.T) {
	p := Particle{Scale: 1, Color: mgl32.Vec3{0, 1, 1}}
	u := Uniforms{Size: 1, Speed: 1, Amplitude: 0.5}

	v := Evaluate(p, u, testView())

	require.True(t, v.Visible())
	assert.InDelta(t, -30, v.Eye.Z(), 1e-4)
	assert.InDelta(t, 100.0/30.0, v.Size, 1e-4)
	ndc := v.NDC()
	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.Equal(t, p.Color, v.Color)
}

func TestEvaluateBehindCameraIsCulled(t *testing.T) {
	p := Particle{Base: mgl32.Vec3{0, 0, 35}, Scale: 1}
	v := Evaluate(p, Uniforms{Size: 1}, testView())
	assert.False(t, v.Visible())
	assert.Zero(t, v.Size)
}

func TestEvaluateIsPure(t *testing.T) {
	p := Particle{
		Base:   mgl32.Vec3{1, 2, 3},
		Random: mgl32.Vec3{-0.5, 0.25, 0.75},
		Scale:  0.6,
		Color:  mgl32.Vec3{1, 0, 0},
	}
	u := Uniforms{Time: 4.2, Speed: 1.3, Size: 0.5, Amplitude: 0.5}
	view := testView()

	assert.Equal(t, Evaluate(p, u, view), Evaluate(p, u, view))
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 1, Coverage(0.5, 0.5), 1e-6, "centre is full intensity")
	assert.InDelta(t, 0.125, Coverage(1, 0.5), 1e-6, "edge midpoint is (1-0.5)^3")

	// Monotonic falloff from the centre
	prev := Coverage(0.5, 0.5)
	for _, u := range []float32{0.6, 0.7, 0.8, 0.9, 1.0} {
		c := Coverage(u, 0.5)
		assert.Less(t, c, prev)
		prev = c
	}

	// Radially symmetric
	assert.InDelta(t, Coverage(0.2, 0.5), Coverage(0.5, 0.8), 1e-6)
}

func TestShade(t *testing.T) {
	c := mgl32.Vec3{0, 1, 1}
	assert.Equal(t, mgl32.Vec3{}, Shade(c, 0))
	assert.True(t, Shade(c, 1).ApproxEqual(c))
	assert.True(t, Shade(c, 0.5).ApproxEqual(mgl32.Vec3{0, 0.5, 0.5}))
}

func TestBlendAdditive(t *testing.T) {
	a := mgl32.Vec3{0.25, 0.5, 0.75}
	b := mgl32.Vec3{0.25, 0.75, 0}

	got := BlendAdditive(a, b)
	assert.True(t, got.ApproxEqual(mgl32.Vec3{0.5, 1, 0.75}), "got %v", got)
	assert.Equal(t, BlendAdditive(a, b), BlendAdditive(b, a), "blend must be order independent")
}
