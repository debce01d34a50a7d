package telemetry

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector(window int) (*PerfCollector, *fakeClock) {
	pc := NewPerfCollector(window)
	clk := &fakeClock{t: time.Unix(0, 0)}
	pc.now = clk.now
	return pc, clk
}

func simulateFrame(pc *PerfCollector, clk *fakeClock, render time.Duration) {
	pc.StartFrame()
	pc.StartPhase(PhaseInput)
	clk.advance(1 * time.Millisecond)
	pc.StartPhase(PhaseAdvance)
	clk.advance(1 * time.Millisecond)
	pc.StartPhase(PhaseRender)
	clk.advance(render)
	pc.EndFrame()
}

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc, clk := newTestCollector(10)

	for i := 0; i < 5; i++ {
		simulateFrame(pc, clk, 8*time.Millisecond)
	}

	stats := pc.Stats()

	if stats.AvgFrame != 10*time.Millisecond {
		t.Errorf("expected 10ms average frame, got %v", stats.AvgFrame)
	}
	if stats.FPS < 99.9 || stats.FPS > 100.1 {
		t.Errorf("expected 100 fps, got %v", stats.FPS)
	}
	if stats.PhaseAvg[PhaseRender] != 8*time.Millisecond {
		t.Errorf("expected 8ms render phase, got %v", stats.PhaseAvg[PhaseRender])
	}
	if pct := stats.PhasePct[PhaseRender]; pct < 79.9 || pct > 80.1 {
		t.Errorf("expected render at 80%%, got %v", pct)
	}
	if _, ok := stats.PhaseAvg[PhaseCapture]; ok {
		t.Error("capture phase was never started")
	}
	if pc.Frames() != 5 {
		t.Errorf("expected 5 frames, got %d", pc.Frames())
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc, clk := newTestCollector(5)

	// Old slow frames fall out of the window.
	for i := 0; i < 5; i++ {
		simulateFrame(pc, clk, 48*time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		simulateFrame(pc, clk, 8*time.Millisecond)
	}

	stats := pc.Stats()
	if stats.MaxFrame != 10*time.Millisecond {
		t.Errorf("expected slow frames to be evicted, max=%v", stats.MaxFrame)
	}
	if pc.Frames() != 10 {
		t.Errorf("expected 10 total frames, got %d", pc.Frames())
	}
}

func TestPerfCollector_P95(t *testing.T) {
	pc, clk := newTestCollector(20)

	for i := 0; i < 19; i++ {
		simulateFrame(pc, clk, 8*time.Millisecond)
	}
	simulateFrame(pc, clk, 98*time.Millisecond)

	stats := pc.Stats()
	if stats.P95Frame != 10*time.Millisecond {
		t.Errorf("expected p95 of 10ms with one outlier, got %v", stats.P95Frame)
	}
	if stats.MaxFrame != 100*time.Millisecond {
		t.Errorf("expected max 100ms, got %v", stats.MaxFrame)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgFrame != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	pc, clk := newTestCollector(4)
	for i := 0; i < 4; i++ {
		simulateFrame(pc, clk, 8*time.Millisecond)
	}

	stats := pc.Stats()
	stats.Particles = 1234
	row := stats.ToCSV(pc.Frames())

	if row.Frame != 4 || row.Particles != 1234 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.AvgFrameUS != 10000 {
		t.Errorf("expected 10000us, got %d", row.AvgFrameUS)
	}
	if row.RenderPct < 79.9 || row.RenderPct > 80.1 {
		t.Errorf("expected render_pct 80, got %v", row.RenderPct)
	}
}
