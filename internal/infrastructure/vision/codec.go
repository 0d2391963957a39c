//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"image"
	"image/draw"

	"whatlooking/internal/domain/entity"
)

// decodeCompressed определяет формат по сигнатуре и распаковывает кадр.
func decodeCompressed(data []byte, maxPixels int) (*entity.Frame, error) {
	if err := checkHeader(data, maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, entity.NewDecodeError("unsupported or corrupt stream", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, entity.NewDecodeError("empty image", nil)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	frame := entity.NewFrame(b.Dx(), b.Dy())
	for i, j := 0, 0; j < len(rgba.Pix); i, j = i+3, j+4 {
		frame.Pix[i] = rgba.Pix[j]
		frame.Pix[i+1] = rgba.Pix[j+1]
		frame.Pix[i+2] = rgba.Pix[j+2]
	}
	return frame, nil
}
