package capture

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

// GIFSink buffers frames and writes an animated GIF on Close.
type GIFSink struct {
	path   string
	width  int // 0 keeps the source width
	delay  int // per frame, 1/100 s
	frames []*image.Paletted
	delays []int
}

// NewGIFSink creates a sink writing to path.
func NewGIFSink(path string, width, delay int) *GIFSink {
	if delay < 1 {
		delay = 1
	}
	return &GIFSink{path: path, width: width, delay: delay}
}

// GIFFactory returns a SinkFactory that writes "<name>-<session>.gif" into dir.
func GIFFactory(dir, name string, width, delay int) SinkFactory {
	return func(session uuid.UUID) (Sink, error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating export directory: %w", err)
		}
		file := fmt.Sprintf("%s-%s.gif", name, session.String()[:8])
		return NewGIFSink(filepath.Join(dir, file), width, delay), nil
	}
}

// Path returns the output file path.
func (s *GIFSink) Path() string { return s.path }

// WriteFrame scales and quantizes img and appends it.
func (s *GIFSink) WriteFrame(img image.Image) error {
	src := img.Bounds()
	if src.Empty() {
		return fmt.Errorf("empty frame")
	}

	dst := image.Rect(0, 0, src.Dx(), src.Dy())
	if s.width > 0 && s.width != src.Dx() {
		h := src.Dy() * s.width / src.Dx()
		if h < 1 {
			h = 1
		}
		dst = image.Rect(0, 0, s.width, h)
	}

	scaled := img
	if dst.Dx() != src.Dx() || dst.Dy() != src.Dy() {
		rgba := image.NewRGBA(dst)
		xdraw.ApproxBiLinear.Scale(rgba, dst, img, src, xdraw.Src, nil)
		scaled = rgba
	}

	frame := image.NewPaletted(dst, palette.Plan9)
	xdraw.FloydSteinberg.Draw(frame, dst, scaled, image.Point{})

	s.frames = append(s.frames, frame)
	s.delays = append(s.delays, s.delay)
	return nil
}

// Frames returns the number of buffered frames.
func (s *GIFSink) Frames() int { return len(s.frames) }

// Close encodes the buffered frames to disk.
func (s *GIFSink) Close() error {
	if len(s.frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.path, err)
	}

	encErr := gif.EncodeAll(f, &gif.GIF{Image: s.frames, Delay: s.delays})
	closeErr := f.Close()
	s.frames = nil
	s.delays = nil

	if encErr != nil {
		return fmt.Errorf("encoding gif: %w", encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", s.path, closeErr)
	}
	return nil
}
