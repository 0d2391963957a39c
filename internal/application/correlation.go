package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

// ErrNodeClosed возвращается после Close.
var ErrNodeClosed = errors.New("correlation node is closed")

// CorrelationNode принимает кадры и рамки по двум независимым каналам.
//
// Кадр декодируется и кладётся в FrameBuffer. Рамки разбираются в
// геометрию, которая вместе с последним кадром уходит во внешние
// RenderSink. Связи между конкретным кадром и конкретным набором рамок
// нет, и то и другое просто «последнее». OnFrame и OnBoundingBox можно
// вызывать из разных горутин.
type CorrelationNode struct {
	decoder  port.ImageDecoder
	frames   *FrameBuffer
	observer port.NodeObserver
	log      *zap.Logger

	geometry atomic.Pointer[entity.Geometry]
	closed   atomic.Bool

	sinksMu sync.Mutex
	sinks   atomic.Pointer[[]port.RenderSink]
}

// NodeOption настраивает CorrelationNode.
type NodeOption func(*CorrelationNode)

// WithLogger задаёт логгер узла.
func WithLogger(log *zap.Logger) NodeOption {
	return func(n *CorrelationNode) {
		if log != nil {
			n.log = log
		}
	}
}

// WithObserver подключает сбор метрик.
func WithObserver(o port.NodeObserver) NodeOption {
	return func(n *CorrelationNode) {
		if o != nil {
			n.observer = o
		}
	}
}

// WithSinks добавляет получателей геометрии.
func WithSinks(sinks ...port.RenderSink) NodeOption {
	return func(n *CorrelationNode) {
		n.AddSink(sinks...)
	}
}

// AddSink подключает получателей геометрии к работающему узлу.
func (n *CorrelationNode) AddSink(sinks ...port.RenderSink) {
	n.sinksMu.Lock()
	defer n.sinksMu.Unlock()

	var next []port.RenderSink
	if cur := n.sinks.Load(); cur != nil {
		next = append(next, *cur...)
	}
	for _, s := range sinks {
		if s != nil {
			next = append(next, s)
		}
	}
	n.sinks.Store(&next)
}

// NewCorrelationNode создаёт узел поверх декодера и буфера кадров.
func NewCorrelationNode(decoder port.ImageDecoder, frames *FrameBuffer, opts ...NodeOption) *CorrelationNode {
	n := &CorrelationNode{
		decoder:  decoder,
		frames:   frames,
		observer: nopObserver{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnFrame декодирует кадр и сохраняет его в буфер.
// При ошибке буфер сохраняет предыдущий кадр.
func (n *CorrelationNode) OnFrame(payload entity.RawImagePayload) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}

	start := time.Now()
	frame, err := n.decoder.Decode(payload)
	took := time.Since(start)
	if err != nil {
		n.log.Error("failed to decode image, frame dropped",
			zap.Int("bytes", len(payload.Data)),
			zap.Bool("compressed", payload.Compressed),
			zap.Error(err))
		n.observer.FrameDropped("decode")
		return err
	}
	n.log.Debug("code block took",
		zap.String("block", "decompress image"),
		zap.Duration("took", took))

	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	frame = n.frames.Store(frame)
	n.observer.FrameDecoded(len(payload.Data), took)

	n.log.Debug("image stored",
		zap.Int("width", frame.Width),
		zap.Int("height", frame.Height),
		zap.Uint64("seq", frame.Seq))
	return nil
}

// OnBoundingBox разбирает сообщение с рамками и пересчитывает геометрию.
// Битое сообщение отбрасывается без изменения состояния.
func (n *CorrelationNode) OnBoundingBox(set *entity.BoundingBoxSet) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}

	geometry, err := n.parse(set)
	if err != nil {
		n.log.Error("bounding box message discarded", zap.Error(err))
		n.observer.BoundingBoxesRejected("malformed")
		return err
	}
	geometry.ReceivedAt = time.Now()
	n.geometry.Store(geometry)
	n.observer.BoundingBoxesProcessed(len(geometry.Boxes))

	n.log.Debug("process bounding boxes",
		zap.Int("data_len", len(set.Data)),
		zap.Int("image_width", geometry.ReferenceWidth),
		zap.Int("image_height", geometry.ReferenceHeight),
		zap.Int("boxes", len(geometry.Boxes)))

	sinks := n.sinks.Load()
	if sinks == nil {
		return nil
	}
	frame, _ := n.frames.Latest()
	for _, sink := range *sinks {
		sink.Render(frame, geometry)
	}
	return nil
}

func (n *CorrelationNode) parse(set *entity.BoundingBoxSet) (*entity.Geometry, error) {
	if set == nil || set.Data == nil {
		return nil, entity.NewMalformedBoundingBoxError("no data attribute")
	}
	view, err := entity.NewBoundingBoxView(set)
	if err != nil {
		return nil, err
	}
	if view.Columns() == 0 {
		return nil, entity.NewMalformedBoundingBoxError("no columns declared")
	}
	geometry, err := view.Geometry()
	if errors.Is(err, entity.ErrIndexOutOfRange) {
		return nil, entity.NewMalformedBoundingBoxError("header row: %v", err)
	}
	return geometry, err
}

// LatestFrame возвращает последний сохранённый кадр.
func (n *CorrelationNode) LatestFrame() (*entity.Frame, bool) {
	return n.frames.Latest()
}

// LatestGeometry возвращает геометрию последнего корректного сообщения с рамками.
func (n *CorrelationNode) LatestGeometry() (*entity.Geometry, bool) {
	g := n.geometry.Load()
	return g, g != nil
}

// Stats возвращает счётчики буфера кадров.
func (n *CorrelationNode) Stats() FrameBufferStats {
	return n.frames.Stats()
}

// Close освобождает буфер кадров. Повторный вызов безопасен.
func (n *CorrelationNode) Close() {
	if n.closed.Swap(true) {
		return
	}
	n.frames.Clear()
	n.geometry.Store(nil)
	n.log.Info("correlation node closed")
}

type nopObserver struct{}

func (nopObserver) FrameDecoded(int, time.Duration) {}
func (nopObserver) FrameDropped(string)             {}
func (nopObserver) BoundingBoxesProcessed(int)      {}
func (nopObserver) BoundingBoxesRejected(string)    {}
