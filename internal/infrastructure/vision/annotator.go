package vision

import (
	"errors"
	"image"
	"image/color"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

// ErrEmptyCrop возвращается, если рамка не пересекается с кадром.
var ErrEmptyCrop = errors.New("crop box is outside the frame")

// Annotator рисует рамки на последнем кадре и кодирует результат в JPEG.
type Annotator struct {
	Color     color.RGBA
	Thickness int
	Quality   int
}

// NewAnnotator создаёт аннотатор с зелёными рамками толщиной 2.
func NewAnnotator() *Annotator {
	return &Annotator{
		Color:     color.RGBA{G: 255, A: 255},
		Thickness: 2,
		Quality:   90,
	}
}

// cropRect ограничивает рамку границами кадра.
func cropRect(frame *entity.Frame, box entity.Box) (image.Rectangle, error) {
	r := box.Rect().Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	if r.Empty() {
		return image.Rectangle{}, ErrEmptyCrop
	}
	return r, nil
}

// boxesFor возвращает рамки геометрии в координатах кадра.
func boxesFor(frame *entity.Frame, geometry *entity.Geometry) []entity.Box {
	if geometry == nil {
		return nil
	}
	return geometry.ScaledBoxes(frame.Width, frame.Height)
}

// centerMark квадрат-метка в центре рамки.
func (a *Annotator) centerMark(box entity.Box) image.Rectangle {
	x, y := box.Center()
	r := a.Thickness
	return image.Rect(x-r, y-r, x+r+1, y+r+1)
}

var _ port.Annotator = (*Annotator)(nil)
