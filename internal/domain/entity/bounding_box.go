package entity

import "time"

const (
	// LabelWidth метка измерения, задающего число столбцов.
	LabelWidth = "width"
	// LabelHeight метка измерения, задающего число строк.
	LabelHeight = "height"
)

// DimensionLabel описывает измерение из заголовка сообщения
type DimensionLabel struct {
	Label string
	Size  int
}

// BoundingBoxSet представляет одно сообщение с рамками.
//
// Data хранится плоским массивом row-major. Строка 0 служебная:
// (0, 0, ширина эталонного кадра, высота эталонного кадра).
// Строки 1..rows-1 содержат рамки (left, top, width, height).
type BoundingBoxSet struct {
	Data []int32
	Dims []DimensionLabel
}

// SizeOf возвращает размер измерения с меткой label или 0, если метки нет.
func (s *BoundingBoxSet) SizeOf(label string) int {
	for _, d := range s.Dims {
		if d.Label == label {
			return d.Size
		}
	}
	return 0
}

// BoundingBoxView даёт доступ к плоскому массиву рамок по (строка, столбец).
type BoundingBoxView struct {
	data    []int32
	columns int
	rows    int
}

// NewBoundingBoxView разбирает размеры из меток "width"/"height".
// Длина данных должна совпадать с rows*columns. При columns == 0 вид
// создаётся, но любой Get вернёт MalformedBoundingBoxError.
func NewBoundingBoxView(set *BoundingBoxSet) (*BoundingBoxView, error) {
	if set == nil || set.Data == nil {
		return nil, NewMalformedBoundingBoxError("missing data")
	}
	v := &BoundingBoxView{
		data:    set.Data,
		columns: set.SizeOf(LabelWidth),
		rows:    set.SizeOf(LabelHeight),
	}
	if v.columns < 0 || v.rows < 0 {
		return nil, NewMalformedBoundingBoxError("negative dimension %dx%d", v.rows, v.columns)
	}
	if v.columns > 0 && v.rows*v.columns != len(v.data) {
		return nil, NewMalformedBoundingBoxError("rows*columns=%d*%d does not match data length %d",
			v.rows, v.columns, len(v.data))
	}
	return v, nil
}

// Columns возвращает число столбцов (размер измерения "width").
func (v *BoundingBoxView) Columns() int { return v.columns }

// Rows возвращает число строк (размер измерения "height").
func (v *BoundingBoxView) Rows() int { return v.rows }

// Get возвращает data[col + row*columns].
func (v *BoundingBoxView) Get(row, col int) (int32, error) {
	if v.columns == 0 {
		return 0, NewMalformedBoundingBoxError("no columns declared")
	}
	// строка проверяется до умножения, иначе row*columns может переполниться
	if row < 0 || col < 0 || col >= v.columns || row >= len(v.data)/v.columns {
		return 0, ErrIndexOutOfRange
	}
	return v.data[col+row*v.columns], nil
}

// Geometry вычисляет эталонные размеры, полуразмеры и рамки строк 1..rows-1.
func (v *BoundingBoxView) Geometry() (*Geometry, error) {
	width, err := v.Get(0, 2)
	if err != nil {
		return nil, err
	}
	height, err := v.Get(0, 3)
	if err != nil {
		return nil, err
	}

	g := &Geometry{
		ReferenceWidth:  int(width),
		ReferenceHeight: int(height),
		HalfWidth:       float64(width) / 2,
		HalfHeight:      float64(height) / 2,
	}
	g.Boxes = make([]Box, 0, max(v.rows-1, 0))
	for row := 1; row < v.rows; row++ {
		base := row * v.columns
		g.Boxes = append(g.Boxes, Box{
			Left:   int(v.data[base]),
			Top:    int(v.data[base+1]),
			Width:  int(v.data[base+2]),
			Height: int(v.data[base+3]),
		})
	}
	return g, nil
}

// Geometry производная геометрия последнего сообщения с рамками.
//
// Полуразмеры считаются делением с плавающей точкой: 641/2 == 320.5.
type Geometry struct {
	ReferenceWidth  int       `json:"reference_width"`
	ReferenceHeight int       `json:"reference_height"`
	HalfWidth       float64   `json:"half_width"`
	HalfHeight      float64   `json:"half_height"`
	Boxes           []Box     `json:"boxes"`
	ReceivedAt      time.Time `json:"received_at"`
}

// Offsets возвращает смещения центров рамок от центра эталонного кадра.
func (g *Geometry) Offsets() []Offset {
	if g == nil {
		return nil
	}
	offsets := make([]Offset, len(g.Boxes))
	for i, b := range g.Boxes {
		x, y := b.Center()
		offsets[i] = Offset{X: float64(x) - g.HalfWidth, Y: float64(y) - g.HalfHeight}
	}
	return offsets
}

// ScaledBoxes переводит рамки из эталонных координат в координаты кадра width x height.
func (g *Geometry) ScaledBoxes(width, height int) []Box {
	boxes := make([]Box, len(g.Boxes))
	if g.ReferenceWidth <= 0 || g.ReferenceHeight <= 0 ||
		(g.ReferenceWidth == width && g.ReferenceHeight == height) {
		copy(boxes, g.Boxes)
		return boxes
	}
	sx := float64(width) / float64(g.ReferenceWidth)
	sy := float64(height) / float64(g.ReferenceHeight)
	for i, b := range g.Boxes {
		boxes[i] = b.Scale(sx, sy)
	}
	return boxes
}
