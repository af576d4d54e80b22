// Package monitor serves the latest headset pose over HTTP and streams it over a websocket.
package monitor

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Source supplies the latest pose and how many poses have been produced.
type Source interface {
	Latest() (headset.HeadsetData, uint64)
}

// Recenterer is implemented by sources that can make the current pose the origin.
type Recenterer interface {
	Recenter()
}

// PoseMessage is the JSON body of /pose and of every websocket message.
type PoseMessage struct {
	Frame uint64              `json:"frame"`
	Pose  headset.HeadsetData `json:"pose"`

	// Projections holds the left and right projection matrices (row-major) built from the
	// eyes' fields of view, when the monitor is configured with WithProjection.
	Projections *[2][16]float32 `json:"projections,omitempty"`
}

// Monitor is the HTTP pose monitor.
type Monitor interface {
	// Handler returns the HTTP handler serving the monitor routes.
	//
	// Returns:
	//   - http.Handler: the router
	Handler() http.Handler

	// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
	//
	// Parameters:
	//   - ctx: stops the server
	//   - addr: the listen address, e.g. "127.0.0.1:8090"
	//
	// Returns:
	//   - error: the listen error, or nil after a graceful shutdown
	Serve(ctx context.Context, addr string) error
}

// projection configures the per-eye projection matrices added to each message.
type projection struct {
	near, far float32
	clip      camera.ClipSpace
}

type monitor struct {
	source     Source
	interval   time.Duration
	projection *projection
	router     *gin.Engine
	upgrader   websocket.Upgrader
}

var _ Monitor = &monitor{}

// NewMonitor creates a monitor over a pose source.
//
// Parameters:
//   - source: the pose source, typically a listener.HeadsetListener
//   - options: functional options
//
// Returns:
//   - Monitor: the monitor
func NewMonitor(source Source, options ...MonitorBuilderOption) Monitor {
	m := &monitor{
		source:   source,
		interval: 100 * time.Millisecond,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range options {
		opt(m)
	}
	m.setRouter()
	return m
}

func (m *monitor) setRouter() {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", m.handleHealth)
	r.GET("/pose", m.handlePose)
	r.GET("/ws", m.handlePoseWS)
	if _, ok := m.source.(Recenterer); ok {
		r.POST("/recenter", m.handleRecenter)
	}
	m.router = r
}

func (m *monitor) Handler() http.Handler {
	return m.router
}

func (m *monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("[Monitor] serving on http://%s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *monitor) handleHealth(c *gin.Context) {
	_, frames := m.source.Latest()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "frames": frames})
}

func (m *monitor) handlePose(c *gin.Context) {
	pose, frame := m.source.Latest()
	if frame == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pose received yet"})
		return
	}
	c.JSON(http.StatusOK, m.message(frame, pose))
}

func (m *monitor) handleRecenter(c *gin.Context) {
	if _, frame := m.source.Latest(); frame == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no pose received yet"})
		return
	}
	m.source.(Recenterer).Recenter()
	pose, frame := m.source.Latest()
	c.JSON(http.StatusOK, m.message(frame, pose))
}

// message wraps a pose, adding the eyes' projection matrices when configured.
// Projections are left out while either eye's field of view has no area.
func (m *monitor) message(frame uint64, pose headset.HeadsetData) PoseMessage {
	msg := PoseMessage{Frame: frame, Pose: pose}
	if p := m.projection; p != nil && hasArea(pose.Left.Fov) && hasArea(pose.Right.Fov) {
		msg.Projections = &[2][16]float32{
			camera.ProjectionFov(pose.Left.Fov, p.near, p.far, p.clip),
			camera.ProjectionFov(pose.Right.Fov, p.near, p.far, p.clip),
		}
	}
	return msg
}

// hasArea reports whether a field of view (up, down, right, left) spans a non-empty frustum.
func hasArea(fov [4]float32) bool {
	return fov[0] > fov[1] && fov[2] > fov[3]
}

// handlePoseWS pushes each new pose, polled at the configured interval, until the client leaves.
func (m *monitor) handlePoseWS(c *gin.Context) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("[Monitor] failed to upgrade to websocket:", err)
		return
	}
	defer conn.Close()

	// The read side only exists to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			pose, frame := m.source.Latest()
			if frame == sent {
				continue
			}
			if err := conn.WriteJSON(m.message(frame, pose)); err != nil {
				log.Println("[Monitor] websocket write failed:", err)
				return
			}
			sent = frame
		}
	}
}
