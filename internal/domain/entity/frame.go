package entity

import (
	"image"
	"time"
)

// Pixel тройка RGB
type Pixel struct {
	R, G, B uint8
}

// Frame представляет декодированный кадр камеры в формате packed RGB.
//
// Строки идут сверху вниз, в каждой строке Width пикселей по 3 байта.
// После сохранения в буфер кадр не изменяется: его читают HTTP, бот и
// вебсокеты одновременно.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte    // len(Pix) == Width*Height*3
	Timestamp time.Time // момент декодирования
	Seq       uint64    // номер, присвоенный буфером при сохранении
}

// NewFrame создаёт кадр заданного размера с нулевыми пикселями.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// At возвращает пиксель в столбце x строки y.
func (f *Frame) At(x, y int) Pixel {
	i := (y*f.Width + x) * 3
	return Pixel{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2]}
}

// Set записывает пиксель в столбец x строки y.
func (f *Frame) Set(x, y int, p Pixel) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = p.R, p.G, p.B
}

// Row возвращает строку y как срез пикселей.
func (f *Frame) Row(y int) []Pixel {
	row := make([]Pixel, f.Width)
	for x := range row {
		row[x] = f.At(x, y)
	}
	return row
}

// Pixels возвращает кадр как двумерную сетку пикселей, строка 0 верхняя.
func (f *Frame) Pixels() [][]Pixel {
	rows := make([][]Pixel, f.Height)
	for y := range rows {
		rows[y] = f.Row(y)
	}
	return rows
}

// Image копирует кадр в *image.RGBA для отрисовки и кодирования.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Equal сравнивает размеры и пиксели двух кадров.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Width != other.Width || f.Height != other.Height || len(f.Pix) != len(other.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// RawImagePayload байты кадра из канала изображений
//
// Для сжатого кадра размеры берутся из самого потока. Несжатый кадр
// размеров не содержит, поэтому Width, Height и Encoding приходят из
// сообщения.
type RawImagePayload struct {
	Data       []byte
	Compressed bool
	Format     string // jpeg, png... (только для сжатых, справочно)
	Width      int
	Height     int
	Encoding   string // rgb8, bgr8, rgba8, bgra8, mono8
	Step       int    // байт на строку, 0 без выравнивания
}
