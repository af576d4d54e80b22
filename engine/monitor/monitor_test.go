package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	mu    sync.Mutex
	pose  headset.HeadsetData
	frame uint64
}

func (s *fakeSource) Latest() (headset.HeadsetData, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose, s.frame
}

func (s *fakeSource) push(x float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame++
	s.pose.Left.Pos[0] = x
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	src := &fakeSource{}
	src.push(1)
	w := get(t, NewMonitor(src).Handler(), "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status string `json:"status"`
		Frames uint64 `json:"frames"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Frames != 1 {
		t.Fatalf("body = %+v", body)
	}
}

func TestPoseBeforeFirstFrame(t *testing.T) {
	w := get(t, NewMonitor(&fakeSource{}).Handler(), "/pose")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestPoseReturnsLatest(t *testing.T) {
	src := &fakeSource{}
	src.push(0.25)
	w := get(t, NewMonitor(src).Handler(), "/pose")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var msg PoseMessage
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Frame != 1 || msg.Pose.Left.Pos[0] != 0.25 {
		t.Fatalf("message = %+v", msg)
	}
	if !strings.Contains(w.Body.String(), `"quaternion"`) {
		t.Fatalf("body should use the record's json names: %s", w.Body.String())
	}
}

func TestWebsocketStreamsNewPoses(t *testing.T) {
	src := &fakeSource{}
	srv := httptest.NewServer(NewMonitor(src, WithInterval(5*time.Millisecond)).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	src.push(1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first PoseMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Frame != 1 || first.Pose.Left.Pos[0] != 1 {
		t.Fatalf("first = %+v", first)
	}

	src.push(2)
	var second PoseMessage
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	// Unchanged poses are not resent, so the next message is the next frame.
	if second.Frame != 2 || second.Pose.Left.Pos[0] != 2 {
		t.Fatalf("second = %+v", second)
	}
}

type recenterSource struct {
	fakeSource
	recentered int
}

func (s *recenterSource) Recenter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentered++
	s.pose = headset.HeadsetData{}
}

func TestRecenterRouteOnlyForRecenterers(t *testing.T) {
	w := httptest.NewRecorder()
	NewMonitor(&fakeSource{}).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/recenter", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 without a recenterable source", w.Code)
	}

	src := &recenterSource{}
	src.push(3)
	w = httptest.NewRecorder()
	NewMonitor(src).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/recenter", nil))
	if w.Code != http.StatusOK || src.recentered != 1 {
		t.Fatalf("status = %d, recentered %d", w.Code, src.recentered)
	}
	var msg PoseMessage
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Pose.Left.Pos[0] != 0 {
		t.Fatalf("response should carry the recentered pose, got %v", msg.Pose.Left.Pos)
	}
}

func TestRecenterBeforeFirstPose(t *testing.T) {
	src := &recenterSource{}
	w := httptest.NewRecorder()
	h := NewMonitor(src, WithProjection(0.1, 100, camera.ClipSpaceOpenGL)).Handler()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/recenter", nil))
	if w.Code != http.StatusServiceUnavailable || src.recentered != 0 {
		t.Fatalf("status = %d, recentered %d; want 503 and no recenter", w.Code, src.recentered)
	}
	if !json.Valid(w.Body.Bytes()) {
		t.Fatalf("body is not JSON: %q", w.Body.String())
	}
}

func TestProjectionsOmittedWithoutFov(t *testing.T) {
	src := &fakeSource{}
	src.push(1)

	w := get(t, NewMonitor(src, WithProjection(0.1, 100, camera.ClipSpaceVulkan)).Handler(), "/pose")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var msg PoseMessage
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if msg.Projections != nil || msg.Frame != 1 {
		t.Fatalf("message = %+v, want frame 1 without projections", msg)
	}
}

func TestPoseWithProjections(t *testing.T) {
	src := &fakeSource{}
	src.push(0)
	src.pose.Left.Fov = [4]float32{0.7, -0.7, 0.7, -0.7}
	src.pose.Right.Fov = [4]float32{0.7, -0.7, 0.7, -0.7}

	plain := get(t, NewMonitor(src).Handler(), "/pose")
	if strings.Contains(plain.Body.String(), "projections") {
		t.Fatalf("projections should be omitted by default")
	}

	w := get(t, NewMonitor(src, WithProjection(0.1, 100, camera.ClipSpaceD3D)).Handler(), "/pose")
	var msg PoseMessage
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Projections == nil {
		t.Fatalf("projections missing")
	}
	want := camera.ProjectionFov(src.pose.Left.Fov, 0.1, 100, camera.ClipSpaceD3D)
	if msg.Projections[0] != want || msg.Projections[1] != want {
		t.Fatalf("projections = %v, want %v", msg.Projections, want)
	}
}
