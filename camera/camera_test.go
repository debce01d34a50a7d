package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newTestCamera() *Camera {
	return New(1280, 720, 75, 0.1, 100, 30)
}

func TestNew(t *testing.T) {
	cam := newTestCamera()

	if cam.Distance != 30 {
		t.Errorf("expected distance 30, got %f", cam.Distance)
	}
	if math.Abs(float64(cam.Aspect()-1280.0/720.0)) > 1e-6 {
		t.Errorf("unexpected aspect %f", cam.Aspect())
	}
}

func TestOriginMapsToScreenCenter(t *testing.T) {
	cam := newTestCamera()

	sx, sy, ok := cam.WorldToScreen(mgl32.Vec3{})
	if !ok {
		t.Fatal("origin should be in front of the camera")
	}
	if math.Abs(float64(sx-640)) > 0.01 || math.Abs(float64(sy-360)) > 0.01 {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestOriginEyeDepth(t *testing.T) {
	cam := newTestCamera()

	eye := cam.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math.Abs(float64(eye.Z()+30)) > 1e-4 {
		t.Errorf("expected origin at eye depth -30, got %f", eye.Z())
	}
}

func TestScreenAxes(t *testing.T) {
	cam := newTestCamera()

	// +X world goes right, +Y world goes up (smaller screen y)
	rx, _, _ := cam.WorldToScreen(mgl32.Vec3{5, 0, 0})
	_, uy, _ := cam.WorldToScreen(mgl32.Vec3{0, 5, 0})
	if rx <= 640 {
		t.Errorf("expected +X to the right of center, got x=%f", rx)
	}
	if uy >= 360 {
		t.Errorf("expected +Y above center, got y=%f", uy)
	}
}

func TestBehindCamera(t *testing.T) {
	cam := newTestCamera()

	if _, _, ok := cam.WorldToScreen(mgl32.Vec3{0, 0, 40}); ok {
		t.Error("expected point behind camera to be rejected")
	}
}

func TestZoomClamp(t *testing.T) {
	cam := newTestCamera()
	cam.MinDistance = 5
	cam.MaxDistance = 90

	cam.ZoomBy(100)
	if cam.Distance != 5 {
		t.Errorf("expected distance clamped to 5, got %f", cam.Distance)
	}

	cam.ZoomBy(0.001)
	if cam.Distance != 90 {
		t.Errorf("expected distance clamped to 90, got %f", cam.Distance)
	}

	cam.Reset()
	if cam.Distance != 30 {
		t.Errorf("expected reset to 30, got %f", cam.Distance)
	}
}

func TestResize(t *testing.T) {
	cam := newTestCamera()
	cam.Resize(800, 800)
	if cam.Aspect() != 1 {
		t.Errorf("expected aspect 1 after resize, got %f", cam.Aspect())
	}

	cam.Resize(0, 100)
	if cam.ViewportW != 800 {
		t.Error("zero-size resize should be ignored")
	}
}
