//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"

	"whatlooking/internal/domain/entity"
)

// Annotate рисует рамки геометрии на кадре и возвращает JPEG.
func (a *Annotator) Annotate(frame *entity.Frame, geometry *entity.Geometry) ([]byte, error) {
	if frame == nil {
		return nil, errors.New("no frame")
	}
	img := frame.Image()
	fill := image.NewUniform(a.Color)
	for _, box := range boxesFor(frame, geometry) {
		r := box.Rect()
		t := a.Thickness
		for _, edge := range []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
			image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
			image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
			a.centerMark(box),
		} {
			draw.Draw(img, edge.Intersect(img.Bounds()), fill, image.Point{}, draw.Src)
		}
	}
	return a.encode(img)
}

// Crop вырезает рамку из кадра и возвращает JPEG.
func (a *Annotator) Crop(frame *entity.Frame, box entity.Box) ([]byte, error) {
	if frame == nil {
		return nil, errors.New("no frame")
	}
	r, err := cropRect(frame, box)
	if err != nil {
		return nil, err
	}
	return a.encode(frame.Image().SubImage(r))
}

func (a *Annotator) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
