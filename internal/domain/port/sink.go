package port

import (
	"time"

	"whatlooking/internal/domain/entity"
)

// RenderSink получает последнюю геометрию вместе с последним кадром.
// Render вызывается из колбэка узла и не должен блокироваться.
type RenderSink interface {
	Render(frame *entity.Frame, geometry *entity.Geometry)
}

// NodeObserver собирает счётчики работы узла
type NodeObserver interface {
	FrameDecoded(bytes int, took time.Duration)
	FrameDropped(reason string)
	BoundingBoxesProcessed(boxes int)
	BoundingBoxesRejected(reason string)
}
