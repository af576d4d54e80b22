package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/capture"
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/Carmen-Shannon/oxy-xr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/Carmen-Shannon/oxy-xr/engine/stereo"
	"github.com/Carmen-Shannon/oxy-xr/engine/transmit"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
)

// calls records the order in which components are used across fakes.
type calls []string

func (c *calls) add(s string) { *c = append(*c, s) }

type fakeFrame struct {
	state  xr.FrameState
	views  []pose.View
	target *renderer.ViewTarget
}

func (f *fakeFrame) State() xr.FrameState { return f.state }

func (f *fakeFrame) Views(fn func(int, pose.View, *renderer.ViewTarget) error) error {
	if !f.state.ShouldRender {
		return nil
	}
	for i, v := range f.views {
		if err := fn(i, v, f.target); err != nil {
			return err
		}
	}
	return nil
}

type fakeSession struct {
	log    *calls
	frames []*fakeFrame
	block  bool // after the frames, wait for ctx
	closed bool
}

func (s *fakeSession) Run(ctx context.Context, onFrame func(xr.Frame) error) error {
	for _, f := range s.frames {
		if err := onFrame(f); err != nil {
			return err
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.log.add("session.Close")
	s.closed = true
	return nil
}

type fakeCapturer struct {
	log   *calls
	frame capture.Frame
	err   error
}

func (c *fakeCapturer) Grab() (capture.Frame, error) {
	c.log.add("grab")
	return c.frame, c.err
}

func (c *fakeCapturer) Region() capture.Region {
	return capture.Region{Width: c.frame.Width, Height: c.frame.Height}
}

func (c *fakeCapturer) Close() error {
	c.log.add("capturer.Close")
	return nil
}

type fakeStereo struct {
	log        *calls
	renderErr  error
	projection [16]float32
	view       [16]float32
}

func (s *fakeStereo) Upload(capture.Frame) error { s.log.add("upload"); return nil }

func (s *fakeStereo) RenderView(eye int, _ *renderer.ViewTarget) error {
	s.log.add("render")
	return s.renderErr
}

func (s *fakeStereo) SetProjection(m [16]float32) { s.projection = m }
func (s *fakeStereo) SetView(m [16]float32)       { s.view = m }
func (s *fakeStereo) Region() capture.Region      { return capture.Region{} }
func (s *fakeStereo) Release()                    { s.log.add("stereo.Release") }

type sink struct {
	log *calls
	bytes.Buffer
	writes int
}

func (s *sink) Write(p []byte) (int, error) {
	s.log.add("write")
	s.writes++
	return s.Buffer.Write(p)
}

func (s *sink) Close() error {
	s.log.add("pipe.Close")
	return nil
}

type fixture struct {
	log      calls
	session  *fakeSession
	capturer *fakeCapturer
	stereo   *fakeStereo
	sink     *sink
	tx       transmit.Transmitter
}

func newFixture(frames int) *fixture {
	fx := &fixture{}
	fx.session = &fakeSession{log: &fx.log}
	for i := 0; i < frames; i++ {
		fx.session.frames = append(fx.session.frames, &fakeFrame{
			state: xr.FrameState{Index: uint64(i), ShouldRender: true},
			views: []pose.View{eyeView(-0.03), eyeView(0.03)},
		})
	}
	fx.capturer = &fakeCapturer{log: &fx.log, frame: capture.Frame{Pix: make([]byte, 2*2*4), Width: 2, Height: 2}}
	fx.stereo = &fakeStereo{log: &fx.log}
	fx.sink = &sink{log: &fx.log}
	fx.tx = transmit.NewTransmitter("test-pipe", transmit.WithDialer(func(string) (io.WriteCloser, error) {
		return fx.sink, nil
	}))
	return fx
}

func (fx *fixture) engine(options ...EngineBuilderOption) Engine {
	return NewEngine(fx.session, fx.capturer, fx.stereo, fx.tx, options...)
}

func eyeView(x float32) pose.View {
	return pose.View{
		Pose: pose.Pose{
			Position:    pose.Vector3{X: x, Y: 1.6},
			Orientation: pose.Quaternion{W: 1},
		},
		Fov: pose.Fov{AngleUp: 0.8, AngleDown: -0.8, AngleRight: 0.7, AngleLeft: -0.7},
	}
}

func TestRunStreamsOneRecordPerFrame(t *testing.T) {
	fx := newFixture(3)
	var seen []uint64
	e := fx.engine(WithFrameCallback(func(i uint64, _ headset.HeadsetData) { seen = append(seen, i) }))

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if fx.sink.writes != 3 || fx.sink.Len() != 3*headset.HeadsetDataSize {
		t.Fatalf("wrote %d records, %d bytes", fx.sink.writes, fx.sink.Len())
	}
	if e.Frames() != 3 || len(seen) != 3 || seen[2] != 2 {
		t.Fatalf("frames = %d, callbacks %v", e.Frames(), seen)
	}

	var got headset.HeadsetData
	if err := got.UnmarshalBinary(fx.sink.Bytes()[:headset.HeadsetDataSize]); err != nil {
		t.Fatalf("decoding first record: %v", err)
	}
	want := headset.HeadsetData{}
	want.LoadView(0, eyeView(-0.03))
	want.LoadView(1, eyeView(0.03))
	if got != want {
		t.Fatalf("record = %+v, want %+v", got, want)
	}
}

func TestRunKeepsPoseOfMissingEye(t *testing.T) {
	fx := newFixture(2)
	// The second frame only reports the left eye.
	fx.session.frames[1].views = []pose.View{eyeView(-0.05)}

	if err := fx.engine().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	var got headset.HeadsetData
	if err := got.UnmarshalBinary(fx.sink.Bytes()[headset.HeadsetDataSize:]); err != nil {
		t.Fatalf("decoding second record: %v", err)
	}
	want := headset.HeadsetData{}
	want.LoadView(0, eyeView(-0.05))
	want.LoadView(1, eyeView(0.03))
	if got != want {
		t.Fatalf("record = %+v, want %+v", got, want)
	}
}

func TestRunFrameOrder(t *testing.T) {
	fx := newFixture(1)
	if err := fx.engine().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	want := []string{
		"grab", "upload", "render", "render", "write",
		"pipe.Close", "stereo.Release", "capturer.Close", "session.Close",
	}
	if len(fx.log) != len(want) {
		t.Fatalf("calls = %v, want %v", fx.log, want)
	}
	for i := range want {
		if fx.log[i] != want[i] {
			t.Fatalf("calls = %v, want %v", fx.log, want)
		}
	}
}

func TestRunFailsWhenPipeIsMissing(t *testing.T) {
	fx := newFixture(1)
	missing := errors.New("no such pipe")
	tx := transmit.NewTransmitter("missing", transmit.WithDialer(func(string) (io.WriteCloser, error) {
		return nil, missing
	}))
	e := NewEngine(fx.session, fx.capturer, fx.stereo, tx)

	if err := e.Run(context.Background()); !errors.Is(err, missing) {
		t.Fatalf("err = %v, want the dial error", err)
	}
	if fx.sink.writes != 0 {
		t.Fatalf("frames ran without an open pipe")
	}
	if !fx.session.closed {
		t.Fatalf("session was not torn down")
	}
}

func TestFrameErrorsStopTheLoop(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(fx *fixture)
	}{
		{"capture", func(fx *fixture) { fx.capturer.err = boom }},
		{"render", func(fx *fixture) { fx.stereo.renderErr = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(3)
			tt.setup(fx)
			e := fx.engine()
			if err := e.Run(context.Background()); !errors.Is(err, boom) {
				t.Fatalf("err = %v, want boom", err)
			}
			if fx.sink.writes != 0 || e.Frames() != 0 {
				t.Fatalf("a failed frame was transmitted")
			}
			if !fx.session.closed || fx.tx.State() != transmit.StateClosed {
				t.Fatalf("components were not torn down")
			}
		})
	}
}

func TestSkippedFramesAreNotTransmitted(t *testing.T) {
	fx := newFixture(2)
	fx.session.frames[0].state.ShouldRender = false
	e := fx.engine()
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if fx.sink.writes != 1 {
		t.Fatalf("writes = %d, want 1", fx.sink.writes)
	}
}

func TestQuitStopsABlockedSession(t *testing.T) {
	fx := newFixture(1)
	fx.session.block = true
	e := fx.engine()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for e.Frames() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first frame never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	e.Quit()
	e.Quit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Quit should end Run cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Quit")
	}
}

func TestContextCancelIsReturned(t *testing.T) {
	fx := newFixture(0)
	fx.session.block = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fx.engine().Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOptionsConfigureStereoAndProfiler(t *testing.T) {
	fx := newFixture(2)
	proj := stereo.DefaultProjection()
	proj[0] = 2
	view := stereo.DefaultView()

	now := time.Unix(0, 0)
	var reports []profiler.Report
	p := profiler.NewProfiler(
		profiler.WithClock(func() time.Time { now = now.Add(time.Second); return now }),
		profiler.WithOutput(func(r profiler.Report) { reports = append(reports, r) }),
	)
	e := fx.engine(WithProjection(proj), WithView(view), WithProfiler(p))

	if fx.stereo.projection != proj || fx.stereo.view != view {
		t.Fatalf("matrices were not applied to the stereo renderer")
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if len(reports) == 0 {
		t.Fatalf("profiler never reported")
	}
	names := map[string]bool{}
	for _, s := range reports[0].Stages {
		names[s.Name] = true
	}
	for _, stage := range []string{StageCapture, StageUpload, StageRender, StageTransmit} {
		if !names[stage] {
			t.Fatalf("stage %q missing from %+v", stage, reports[0].Stages)
		}
	}
}

func TestSnapshotWritesFirstFrameOnce(t *testing.T) {
	fx := newFixture(2)
	path := filepath.Join(t.TempDir(), "snap.png")
	if err := fx.engine(WithSnapshot(path)).Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
}
