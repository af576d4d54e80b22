// Command headset-listen creates the pose pipe, reads the headset records a mirror server writes
// into it and logs them, optionally serving them over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/Carmen-Shannon/oxy-xr/engine/listener"
	"github.com/Carmen-Shannon/oxy-xr/engine/monitor"
	"github.com/Carmen-Shannon/oxy-xr/engine/pipe"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("headset-listen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	pipeName := fs.String("pipe", pipe.DefaultName, "pipe name or path")
	httpAddr := fs.String("http", "", "serve /healthz, /pose and /ws on this address")
	interval := fs.Duration("interval", 100*time.Millisecond, "websocket poll interval")
	logEvery := fs.Duration("log-every", time.Second, "how often to log the latest pose (0 disables)")
	clip := fs.String("clip", "", "add per-eye projections for this clip space to monitor messages (opengl, d3d, vulkan)")
	near := fs.Float64("near", 0.05, "near plane of the monitor projections")
	far := fs.Float64("far", 100, "far plane of the monitor projections")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	monitorOptions := []monitor.MonitorBuilderOption{monitor.WithInterval(*interval)}
	if *clip != "" {
		cs, ok := camera.ParseClipSpace(*clip)
		if !ok {
			fmt.Fprintln(stderr, "headset-listen: unknown clip space:", *clip)
			return 2
		}
		monitorOptions = append(monitorOptions, monitor.WithProjection(float32(*near), float32(*far), cs))
	}

	path := pipe.PathFor(*pipeName)
	l, err := pipe.Listen(path)
	if err != nil {
		fmt.Fprintln(stderr, "headset-listen:", err)
		return 1
	}
	defer l.Close()
	fmt.Fprintln(stdout, "waiting for a writer on", l.Path())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src := &currentSource{}
	if *httpAddr != "" {
		m := monitor.NewMonitor(src, monitorOptions...)
		go func() {
			if err := m.Serve(ctx, *httpAddr); err != nil {
				log.Printf("[Monitor] %v", err)
				stop()
			}
		}()
	}

	if err := acceptLoop(ctx, l, src, *logEvery); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "headset-listen:", err)
		return 1
	}
	return 0
}

// acceptLoop serves one writer at a time until ctx is cancelled.
func acceptLoop(ctx context.Context, l pipe.Listener, src *currentSource, logEvery time.Duration) error {
	for {
		conns := make(chan io.ReadCloser, 1)
		errs := make(chan error, 1)
		go func() {
			conn, err := l.Accept()
			if err != nil {
				errs <- err
				return
			}
			conns <- conn
		}()

		var conn io.ReadCloser
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case conn = <-conns:
		}

		log.Println("[Listener] writer connected")
		if err := consume(ctx, conn, src, logEvery); err != nil {
			return err
		}
	}
}

// consume reads records from one connection until the writer leaves or ctx is cancelled.
func consume(ctx context.Context, conn io.ReadCloser, src *currentSource, logEvery time.Duration) error {
	var last time.Time
	hl := listener.NewHeadsetListener(conn, listener.WithFrameCallback(func(seq uint64, data headset.HeadsetData) {
		if logEvery <= 0 || time.Since(last) < logEvery {
			return
		}
		last = time.Now()
		log.Printf("[Listener] #%d left pos %v quat %v | right pos %v quat %v",
			seq, data.Left.Pos, data.Left.Quaternion, data.Right.Pos, data.Right.Quaternion)
	}))
	src.set(hl)

	select {
	case <-ctx.Done():
		hl.Close()
		return ctx.Err()
	case <-hl.Done():
	}
	if err := hl.Err(); err != nil {
		log.Printf("[Listener] writer dropped: %v", err)
	} else {
		log.Println("[Listener] writer closed the pipe")
	}
	return hl.Close()
}

// currentSource exposes the listener of the current connection to the monitor.
// Poses from a finished connection stay visible until the next writer connects.
type currentSource struct {
	mu sync.Mutex
	hl listener.HeadsetListener
}

func (s *currentSource) set(hl listener.HeadsetListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hl = hl
}

func (s *currentSource) Latest() (headset.HeadsetData, uint64) {
	s.mu.Lock()
	hl := s.hl
	s.mu.Unlock()
	if hl == nil {
		return headset.HeadsetData{}, 0
	}
	return hl.Latest()
}

func (s *currentSource) Recenter() {
	s.mu.Lock()
	hl := s.hl
	s.mu.Unlock()
	if hl != nil {
		hl.Recenter()
	}
}
