package container

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"whatlooking/internal/api/web"
	app "whatlooking/internal/application"
	"whatlooking/internal/domain/port"
	"whatlooking/internal/infrastructure/metrics"
	"whatlooking/internal/infrastructure/vision"
)

type Container struct {
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Frames      *app.FrameBuffer
	Node        *app.CorrelationNode
	UserService *app.UserService
	Annotator   port.Annotator
	Hub         *web.Hub
}

// New собирает узел. maxPixels ограничивает размер кадра, 0 означает
// значение по умолчанию декодера.
func New(userRepo port.UserRepository, log *zap.Logger, maxPixels int) *Container {
	if log == nil {
		log = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	hub := web.NewHub(log.Named("ws"))
	decoder := vision.NewDecoder()
	if maxPixels > 0 {
		decoder.MaxPixels = maxPixels
	}
	frames := app.NewFrameBuffer()
	node := app.NewCorrelationNode(decoder, frames,
		app.WithLogger(log.Named("node")),
		app.WithObserver(m),
		app.WithSinks(hub),
	)

	return &Container{
		Registry:    registry,
		Metrics:     m,
		Frames:      frames,
		Node:        node,
		UserService: app.NewUserService(userRepo),
		Annotator:   vision.NewAnnotator(),
		Hub:         hub,
	}
}

// Server собирает HTTP-сервер поверх узла.
func (c *Container) Server(log *zap.Logger) *web.Server {
	return web.NewServer(c.Node, c.Annotator, c.Hub, c.Registry, log)
}
