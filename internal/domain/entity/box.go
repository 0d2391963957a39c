package entity

import "image"

// Box — прямоугольник найденного объекта
type Box struct {
	Left   int `json:"left"`   // координата X левого верхнего угла
	Top    int `json:"top"`    // координата Y левого верхнего угла
	Width  int `json:"width"`  // ширина в пикселях
	Height int `json:"height"` // высота в пикселях
}

// Center возвращает координаты центра рамки
func (b Box) Center() (x, y int) {
	return b.Left + b.Width/2, b.Top + b.Height/2
}

// Offset смещение центра рамки от центра эталонного кадра, в пикселях.
// Положительный X вправо, положительный Y вниз.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect возвращает рамку как image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Left+b.Width, b.Top+b.Height)
}

// Scale масштабирует рамку по осям
func (b Box) Scale(sx, sy float64) Box {
	return Box{
		Left:   int(float64(b.Left) * sx),
		Top:    int(float64(b.Top) * sy),
		Width:  int(float64(b.Width) * sx),
		Height: int(float64(b.Height) * sy),
	}
}
