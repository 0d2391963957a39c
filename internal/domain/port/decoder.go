package port

import "whatlooking/internal/domain/entity"

// ImageDecoder интерфейс декодера кадров
type ImageDecoder interface {
	// Decode превращает сжатые или сырые байты в кадр RGB.
	// Ошибка всегда имеет тип *entity.DecodeError.
	Decode(payload entity.RawImagePayload) (*entity.Frame, error)
}

// Annotator интерфейс отрисовки рамок на кадре
type Annotator interface {
	// Annotate рисует рамки геометрии на кадре и возвращает JPEG.
	Annotate(frame *entity.Frame, geometry *entity.Geometry) ([]byte, error)

	// Crop вырезает рамку из кадра и возвращает JPEG.
	Crop(frame *entity.Frame, box entity.Box) ([]byte, error)
}
