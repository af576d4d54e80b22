// Package engine runs the mirror's control loop: each paced XR frame it captures the screen
// region, uploads it, renders it into every view and streams the views' poses to the pipe.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-xr/engine/capture"
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/Carmen-Shannon/oxy-xr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/Carmen-Shannon/oxy-xr/engine/stereo"
	"github.com/Carmen-Shannon/oxy-xr/engine/transmit"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
)

// Stage names reported by the profiler.
const (
	StageCapture  = "capture"
	StageUpload   = "upload"
	StageRender   = "render"
	StageTransmit = "transmit"
)

// engine implements the Engine interface.
type engine struct {
	session     xr.Session
	capturer    capture.Capturer
	stereo      stereo.StereoRenderer
	transmitter transmit.Transmitter

	profiler         *profiler.Profiler
	profilingEnabled bool

	snapshotPath string
	onFrame      func(index uint64, data headset.HeadsetData)

	quitChannel chan struct{}
	quitOnce    sync.Once

	// data is the record sent each frame. It lives for the whole run, so an eye a frame
	// does not report keeps its last pose.
	data headset.HeadsetData

	// buf is reused for every encoded record.
	buf    []byte
	frames atomic.Uint64
}

var _ Engine = &engine{}

// Engine is the main entry point for the mirror.
// It owns the XR session, the capturer, the stereo renderer and the transmitter.
type Engine interface {
	// Run opens the transmitter and drives the session's frame loop until the session ends,
	// ctx is cancelled, Quit is called, or a frame fails. Every owned component is released
	// before Run returns, whatever the outcome.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: nil when the session ended normally, otherwise the error that stopped the loop
	Run(ctx context.Context) error

	// Quit asks a running loop to stop after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Frames returns how many headset records have been written.
	//
	// Returns:
	//   - uint64: the transmitted frame count
	Frames() uint64
}

// NewEngine creates an Engine from its four components. The engine takes ownership of all of them.
//
// Parameters:
//   - session: the XR runtime session that paces frames and supplies views
//   - capturer: the screen capturer
//   - sr: the stereo renderer drawing the captured frame into each view
//   - transmitter: the pose pipe writer
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(session xr.Session, capturer capture.Capturer, sr stereo.StereoRenderer, transmitter transmit.Transmitter, options ...EngineBuilderOption) Engine {
	e := &engine{
		session:     session,
		capturer:    capturer,
		stereo:      sr,
		transmitter: transmitter,
		quitChannel: make(chan struct{}),
		buf:         make([]byte, 0, headset.HeadsetDataSize),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profilingEnabled && e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Run(ctx context.Context) (err error) {
	defer e.teardown()

	if err := e.transmitter.Open(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	log.Printf("[Engine] streaming poses to %s", e.transmitter.Path())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.quitChannel:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = e.session.Run(ctx, e.frame)
	select {
	case <-e.quitChannel:
		// A requested stop is a normal end.
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	default:
	}
	log.Printf("[Engine] stopped after %d frames", e.frames.Load())
	return err
}

// frame runs one iteration of the loop: capture, upload, per-view render and pose load, transmit.
func (e *engine) frame(f xr.Frame) error {
	if !f.State().ShouldRender {
		return nil
	}

	var grabbed capture.Frame
	if err := e.measure(StageCapture, func() (err error) {
		grabbed, err = e.capturer.Grab()
		return err
	}); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if err := e.measure(StageUpload, func() error {
		return e.stereo.Upload(grabbed)
	}); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if err := e.measure(StageRender, func() error {
		return f.Views(func(index int, view pose.View, target *renderer.ViewTarget) error {
			if err := e.stereo.RenderView(index, target); err != nil {
				return err
			}
			e.data.LoadView(index, view)
			return nil
		})
	}); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if err := e.measure(StageTransmit, func() error {
		e.buf, _ = e.data.AppendBinary(e.buf[:0])
		return e.transmitter.Write(e.buf)
	}); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if e.snapshotPath != "" {
		if err := capture.SavePNG(grabbed, e.snapshotPath); err != nil {
			log.Printf("[Engine] snapshot failed: %v", err)
		} else {
			log.Printf("[Engine] saved capture snapshot to %s", e.snapshotPath)
		}
		e.snapshotPath = ""
	}

	if e.onFrame != nil {
		e.onFrame(e.frames.Load(), e.data)
	}
	e.frames.Add(1)

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return nil
}

// measure runs fn under the profiler when profiling is enabled.
func (e *engine) measure(stage string, fn func() error) error {
	if !e.profilingEnabled {
		return fn()
	}
	return e.profiler.Measure(stage, fn)
}

// teardown releases every owned component in reverse order of use, logging failures.
func (e *engine) teardown() {
	if err := e.transmitter.Close(); err != nil {
		log.Printf("[Engine] closing transmitter: %v", err)
	}
	e.stereo.Release()
	if err := e.capturer.Close(); err != nil {
		log.Printf("[Engine] closing capturer: %v", err)
	}
	if err := e.session.Close(); err != nil {
		log.Printf("[Engine] closing session: %v", err)
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}
