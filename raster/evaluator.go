package raster

import (
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/nebula/camera"
	"github.com/pthm-cable/nebula/field"
	"github.com/pthm-cable/nebula/motion"
)

// defaultParallelThreshold is the minimum particle count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const defaultParallelThreshold = 4096

// Sprite is one evaluated particle in screen space.
type Sprite struct {
	X, Y    float32 // centre in pixels, origin top-left
	Size    float32 // edge length in pixels
	Depth   float32 // eye-space z
	Color   mgl32.Vec3
	Visible bool
}

// frameJob is the read-only input shared by all workers for one frame.
type frameJob struct {
	buffers  *field.BufferSet
	uniforms motion.Uniforms
	view     motion.View
	cam      *camera.Camera
	out      []Sprite
}

// workChunk represents a range of particles for a worker to process.
type workChunk struct {
	start, end int
}

// Evaluator runs the motion stage for every particle of a buffer set.
// Particles are independent, so chunks are evaluated on a persistent worker
// pool and each worker writes only its own range of the output.
type Evaluator struct {
	threshold  int
	numWorkers int
	job        frameJob
	sprites    []Sprite

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// NewEvaluator creates an evaluator. workers <= 0 uses GOMAXPROCS;
// threshold <= 0 uses the default.
func NewEvaluator(workers, threshold int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = defaultParallelThreshold
	}
	return &Evaluator{
		threshold:  threshold,
		numWorkers: workers,
	}
}

// Uniforms converts the field's uniform block to the evaluator's.
func Uniforms(u *field.Uniforms) motion.Uniforms {
	return motion.Uniforms{
		Time:      u.Time,
		Speed:     u.Speed,
		Size:      u.Size,
		Amplitude: u.Randomness,
	}
}

// Evaluate computes one sprite per particle. The returned slice is reused on
// the next call.
func (e *Evaluator) Evaluate(b *field.BufferSet, u *field.Uniforms, cam *camera.Camera) []Sprite {
	n := b.Count
	if cap(e.sprites) < n {
		e.sprites = make([]Sprite, n)
	}
	e.sprites = e.sprites[:n]

	e.job = frameJob{
		buffers:  b,
		uniforms: Uniforms(u),
		view:     cam.View(),
		cam:      cam,
		out:      e.sprites,
	}

	if n < e.threshold || e.numWorkers == 1 {
		e.job.compute(0, n)
	} else {
		e.computeParallel(n)
	}

	e.job = frameJob{}
	return e.sprites
}

// compute evaluates particles [start, end).
func (j *frameJob) compute(start, end int) {
	b := j.buffers
	for i := start; i < end; i++ {
		v := motion.Evaluate(motion.Particle{
			Base:   b.Position(i),
			Random: b.RandomVector(i),
			Scale:  b.Scale(i),
			Color:  b.Color(i),
		}, j.uniforms, j.view)

		if !v.Visible() {
			j.out[i] = Sprite{}
			continue
		}

		ndc := v.NDC()
		sx, sy := j.cam.NDCToScreen(ndc.X(), ndc.Y())
		j.out[i] = Sprite{
			X:       sx,
			Y:       sy,
			Size:    v.Size,
			Depth:   v.Eye.Z(),
			Color:   v.Color,
			Visible: true,
		}
	}
}

// computeParallel dispatches work to the worker pool.
func (e *Evaluator) computeParallel(n int) {
	if !e.running {
		e.startWorkers()
	}

	chunkSize := (n + e.numWorkers - 1) / e.numWorkers

	chunksDispatched := 0
	for w := 0; w < e.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		e.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-e.doneChan
	}
}

// startWorkers launches persistent worker goroutines.
func (e *Evaluator) startWorkers() {
	e.workChan = make(chan workChunk, e.numWorkers)
	e.doneChan = make(chan struct{}, e.numWorkers)
	e.stopChan = make(chan struct{})
	e.running = true

	for i := 0; i < e.numWorkers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// worker processes chunks until stopped.
func (e *Evaluator) worker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			return
		case chunk, ok := <-e.workChan:
			if !ok {
				return
			}
			e.job.compute(chunk.start, chunk.end)
			e.doneChan <- struct{}{}
		}
	}
}

// Close signals all workers to exit and waits for them.
func (e *Evaluator) Close() {
	if !e.running {
		return
	}

	close(e.stopChan)
	e.wg.Wait()
	close(e.workChan)
	close(e.doneChan)
	e.running = false
}
