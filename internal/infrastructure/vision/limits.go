package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"whatlooking/internal/domain/entity"
)

// DefaultMaxPixels ограничивает площадь кадра, если лимит не задан: 8192x4096.
const DefaultMaxPixels = 8192 * 4096

// checkPixels отказывает кадрам, которые больше лимита. Умножение в
// uint64 не переполняется для любых размеров из uint32.
func checkPixels(width, height, maxPixels int) error {
	if width <= 0 || height <= 0 {
		return entity.NewDecodeError(fmt.Sprintf("invalid frame size %dx%d", width, height), nil)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if uint64(width)*uint64(height) > uint64(maxPixels) {
		return entity.NewDecodeError(
			fmt.Sprintf("frame %dx%d exceeds limit of %d pixels", width, height, maxPixels), nil)
	}
	return nil
}

// checkHeader читает из заголовка объявленные размеры и проверяет их до
// распаковки, чтобы поток не заставил выделить память под огромный кадр.
func checkHeader(data []byte, maxPixels int) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return entity.NewDecodeError("unsupported or corrupt stream", err)
	}
	return checkPixels(cfg.Width, cfg.Height, maxPixels)
}
