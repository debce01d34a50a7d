// Package capture records rendered frames into a video container.
package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultFrameBudget is how many frames a recording holds before it stops itself.
const DefaultFrameBudget = 300

// ErrNotRecording is returned by Feed when the caller expects an active session.
var ErrNotRecording = errors.New("capture: not recording")

// Sink receives frames for one recording and finalizes the container on Close.
type Sink interface {
	WriteFrame(img image.Image) error
	Close() error
	Path() string
}

// SinkFactory opens a sink for a new session.
type SinkFactory func(session uuid.UUID) (Sink, error)

// Result summarizes a finished recording.
type Result struct {
	Session uuid.UUID
	Frames  int
	Path    string
}

// Recorder feeds frames to a sink at a fixed frame rate and stops after a
// frame budget or an explicit Stop.
type Recorder struct {
	newSink SinkFactory
	budget  int
	dt      float64

	recording bool
	session   uuid.UUID
	sink      Sink
	frames    int
	startTime float64

	// OnFinish is called after a recording is finalized.
	OnFinish func(Result, error)
}

// NewRecorder creates a recorder. fps sets the fixed capture clock;
// budget <= 0 uses DefaultFrameBudget.
func NewRecorder(newSink SinkFactory, fps, budget int) *Recorder {
	if budget <= 0 {
		budget = DefaultFrameBudget
	}
	if fps <= 0 {
		fps = 60
	}
	return &Recorder{
		newSink: newSink,
		budget:  budget,
		dt:      1.0 / float64(fps),
	}
}

// Start begins a recording at animation time now. Starting while already
// recording is a no-op.
func (r *Recorder) Start(now float64) error {
	if r.recording {
		return nil
	}

	session := uuid.New()
	sink, err := r.newSink(session)
	if err != nil {
		return fmt.Errorf("opening capture sink: %w", err)
	}

	r.session = session
	r.sink = sink
	r.frames = 0
	r.startTime = now
	r.recording = true

	slog.Info("recording started", "session", session, "budget", r.budget, "path", sink.Path())
	return nil
}

// FrameTime is the animation time of the next captured frame. While
// recording, the render loop uses it instead of the wall clock so the video
// plays back at the capture rate regardless of how slowly frames render.
func (r *Recorder) FrameTime() float64 {
	return r.startTime + float64(r.frames)*r.dt
}

// Feed appends a frame. It stops the recording once the budget is reached.
func (r *Recorder) Feed(img image.Image) error {
	if !r.recording {
		return ErrNotRecording
	}

	if err := r.sink.WriteFrame(img); err != nil {
		// A broken sink ends the session; keep what was written so far.
		_, stopErr := r.Stop()
		return errors.Join(fmt.Errorf("writing frame %d: %w", r.frames, err), stopErr)
	}
	r.frames++

	if r.frames >= r.budget {
		_, err := r.Stop()
		return err
	}
	return nil
}

// Stop finalizes the container. Stopping while idle is a no-op.
func (r *Recorder) Stop() (Result, error) {
	if !r.recording {
		return Result{}, nil
	}

	res := Result{Session: r.session, Frames: r.frames, Path: r.sink.Path()}
	err := r.sink.Close()
	if err != nil {
		err = fmt.Errorf("finalizing recording: %w", err)
	}

	r.recording = false
	r.sink = nil

	if err != nil {
		slog.Error("recording failed", "session", res.Session, "frames", res.Frames, "error", err)
	} else {
		slog.Info("recording saved", "session", res.Session, "frames", res.Frames, "path", res.Path)
	}
	if r.OnFinish != nil {
		r.OnFinish(res, err)
	}
	return res, err
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool { return r.recording }

// Frames returns the number of frames captured in the current session.
func (r *Recorder) Frames() int { return r.frames }

// Budget returns the frame budget.
func (r *Recorder) Budget() int { return r.budget }
