package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "whatlooking/internal/application"
	"whatlooking/internal/domain/entity"
	"whatlooking/internal/infrastructure/metrics"
	"whatlooking/internal/infrastructure/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	frame    *entity.Frame
	geometry *entity.Geometry
}

func (f *fakeSource) LatestFrame() (*entity.Frame, bool) {
	return f.frame, f.frame != nil
}

func (f *fakeSource) LatestGeometry() (*entity.Geometry, bool) {
	return f.geometry, f.geometry != nil
}

func (f *fakeSource) Stats() app.FrameBufferStats {
	if f.frame == nil {
		return app.FrameBufferStats{}
	}
	return app.FrameBufferStats{Stored: 1}
}

func testGeometry() *entity.Geometry {
	return &entity.Geometry{
		ReferenceWidth:  40,
		ReferenceHeight: 30,
		HalfWidth:       20,
		HalfHeight:      15,
		Boxes:           []entity.Box{{Left: 4, Top: 4, Width: 10, Height: 8}},
	}
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_EmptyNode(t *testing.T) {
	s := NewServer(&fakeSource{}, vision.NewAnnotator(), nil, nil, nil)

	w := serve(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["has_frame"])
	assert.Equal(t, false, body["has_geometry"])

	assert.Equal(t, http.StatusNotFound, serve(t, s, "/geometry").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/snapshot.jpg").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/crop/0").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/metrics").Code)
}

func TestServer_Geometry(t *testing.T) {
	s := NewServer(&fakeSource{geometry: testGeometry()}, vision.NewAnnotator(), nil, nil, nil)

	w := serve(t, s, "/geometry")
	require.Equal(t, http.StatusOK, w.Code)

	var g entity.Geometry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, 40, g.ReferenceWidth)
	assert.Equal(t, 20.0, g.HalfWidth)
	assert.Len(t, g.Boxes, 1)
}

func TestServer_SnapshotAndCrop(t *testing.T) {
	src := &fakeSource{frame: entity.NewFrame(40, 30), geometry: testGeometry()}
	s := NewServer(src, vision.NewAnnotator(), nil, nil, nil)

	w := serve(t, s, "/snapshot.jpg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = serve(t, s, "/crop/0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, serve(t, s, "/crop/1").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/crop/x").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/crop/-1").Code)
}

func TestServer_SnapshotWithoutGeometry(t *testing.T) {
	s := NewServer(&fakeSource{frame: entity.NewFrame(8, 8)}, vision.NewAnnotator(), nil, nil, nil)

	w := serve(t, s, "/snapshot.jpg")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.FrameDecoded(100, time.Millisecond)

	s := NewServer(&fakeSource{}, vision.NewAnnotator(), nil, reg, nil)
	w := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "whatlooking_frames_decoded_total 1"))
}

func TestHub_BroadcastsGeometry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	s := NewServer(&fakeSource{}, vision.NewAnnotator(), hub, nil, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	frame := entity.NewFrame(80, 60)
	frame.Seq = 7
	hub.Render(frame, testGeometry())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event GeometryEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, uint64(7), event.FrameSeq)
	assert.Equal(t, 80, event.FrameWidth)
	require.Len(t, event.Boxes, 1)
	assert.Equal(t, entity.Box{Left: 8, Top: 8, Width: 20, Height: 16}, event.Boxes[0])
	// центр (9,8) относительно центра эталона (20,15)
	require.Len(t, event.Offsets, 1)
	assert.Equal(t, entity.Offset{X: -11, Y: -7}, event.Offsets[0])
}

func TestHub_RenderWithoutFrame(t *testing.T) {
	hub := NewHub(nil)
	hub.Render(nil, testGeometry())

	select {
	case message := <-hub.broadcast:
		var event GeometryEvent
		require.NoError(t, json.Unmarshal(message, &event))
		assert.Zero(t, event.FrameSeq)
		assert.Empty(t, event.Boxes)
		assert.Len(t, event.Geometry.Boxes, 1)
	default:
		t.Fatal("event was not queued")
	}
}

func TestHub_RenderDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.broadcast)+5; i++ {
		hub.Render(nil, testGeometry())
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}
