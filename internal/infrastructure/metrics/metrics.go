package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"whatlooking/internal/domain/port"
)

// Metrics метрики узла для Prometheus
type Metrics struct {
	// Кадры
	FramesDecoded  prometheus.Counter
	FramesDropped  *prometheus.CounterVec
	FrameSize      prometheus.Histogram
	DecodeDuration prometheus.Histogram

	// Сообщения с рамками
	BoundingBoxMessages *prometheus.CounterVec
	BoxesPerMessage     prometheus.Histogram
}

// New создаёт метрики и регистрирует их в reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesDecoded: f.NewCounter(prometheus.CounterOpts{
			Name: "whatlooking_frames_decoded_total",
			Help: "Total number of frames decoded and stored",
		}),
		FramesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatlooking_frames_dropped_total",
				Help: "Total number of frames dropped",
			},
			[]string{"reason"},
		),
		FrameSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whatlooking_frame_size_bytes",
			Help:    "Size of received frame payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // от 1 КБ до 16 МБ
		}),
		DecodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whatlooking_decode_duration_seconds",
			Help:    "Time spent decoding a frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // от 0.5 мс до ~1 с
		}),
		BoundingBoxMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whatlooking_bounding_box_messages_total",
				Help: "Total number of bounding box messages by result",
			},
			[]string{"result"},
		),
		BoxesPerMessage: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "whatlooking_boxes_per_message",
			Help:    "Number of detection boxes per message",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}
}

func (m *Metrics) FrameDecoded(bytes int, took time.Duration) {
	m.FramesDecoded.Inc()
	m.FrameSize.Observe(float64(bytes))
	m.DecodeDuration.Observe(took.Seconds())
}

func (m *Metrics) FrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) BoundingBoxesProcessed(boxes int) {
	m.BoundingBoxMessages.WithLabelValues("processed").Inc()
	m.BoxesPerMessage.Observe(float64(boxes))
}

func (m *Metrics) BoundingBoxesRejected(reason string) {
	m.BoundingBoxMessages.WithLabelValues("rejected_" + reason).Inc()
}

var _ port.NodeObserver = (*Metrics)(nil)
