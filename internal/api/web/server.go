package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	app "whatlooking/internal/application"
	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

// Source отдаёт последний кадр и последнюю геометрию узла.
type Source interface {
	LatestFrame() (*entity.Frame, bool)
	LatestGeometry() (*entity.Geometry, bool)
	Stats() app.FrameBufferStats
}

// Server отдаёт снимки, геометрию, метрики и поток геометрии по вебсокету.
type Server struct {
	source    Source
	annotator port.Annotator
	hub       *Hub
	gatherer  prometheus.Gatherer
	log       *zap.Logger
	router    *gin.Engine
	srv       *http.Server
}

// NewServer собирает маршруты.
func NewServer(source Source, annotator port.Annotator, hub *Hub, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		source:    source,
		annotator: annotator,
		hub:       hub,
		gatherer:  gatherer,
		log:       log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/health", s.health)
	r.GET("/geometry", s.geometry)
	r.GET("/snapshot.jpg", s.snapshot)
	r.GET("/crop/:index", s.crop)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if hub != nil {
		r.GET("/ws", func(c *gin.Context) { hub.ServeWS(c.Writer, c.Request) })
	}
	s.router = r
	return s
}

// Handler возвращает http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает addr до отмены контекста.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", zap.String("addr", addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	stats := s.source.Stats()
	_, hasFrame := s.source.LatestFrame()
	_, hasGeometry := s.source.LatestGeometry()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"has_frame":          hasFrame,
		"has_geometry":       hasGeometry,
		"frames_stored":      stats.Stored,
		"frames_overwritten": stats.Overwritten,
	})
}

func (s *Server) geometry(c *gin.Context) {
	g, ok := s.source.LatestGeometry()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bounding boxes received yet"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) snapshot(c *gin.Context) {
	frame, ok := s.source.LatestFrame()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame decoded yet"})
		return
	}
	g, _ := s.source.LatestGeometry()
	out, err := s.annotator.Annotate(frame, g)
	if err != nil {
		s.log.Error("failed to annotate snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render snapshot"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", out)
}

func (s *Server) crop(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return
	}
	frame, ok := s.source.LatestFrame()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame decoded yet"})
		return
	}
	g, ok := s.source.LatestGeometry()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bounding boxes received yet"})
		return
	}
	boxes := g.ScaledBoxes(frame.Width, frame.Height)
	if index >= len(boxes) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no box with this index"})
		return
	}
	out, err := s.annotator.Crop(frame, boxes[index])
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", out)
}
