// Package msg описывает схемы сообщений обоих каналов и их кодирование в msgpack.
//
// Схемы повторяют sensor_msgs/CompressedImage, sensor_msgs/Image и
// std_msgs/Int32MultiArray. Проверка формата выполняется здесь, на
// границе, поэтому узел получает уже типизированные значения.
package msg

import (
	"github.com/vmihailenco/msgpack/v5"

	"whatlooking/internal/domain/entity"
)

// CompressedImage сжатый кадр (JPEG, PNG...)
type CompressedImage struct {
	Format string `msgpack:"format"`
	Data   []byte `msgpack:"data"`
}

// Image несжатый кадр. Размеры и кодировка приходят вместе с данными.
type Image struct {
	Height      uint32 `msgpack:"height"`
	Width       uint32 `msgpack:"width"`
	Encoding    string `msgpack:"encoding"`
	IsBigEndian uint8  `msgpack:"is_bigendian"`
	Step        uint32 `msgpack:"step"`
	Data        []byte `msgpack:"data"`
}

// MultiArrayDimension описывает одно измерение массива
type MultiArrayDimension struct {
	Label  string `msgpack:"label"`
	Size   uint32 `msgpack:"size"`
	Stride uint32 `msgpack:"stride"`
}

// MultiArrayLayout заголовок многомерного массива
type MultiArrayLayout struct {
	Dim        []MultiArrayDimension `msgpack:"dim"`
	DataOffset uint32                `msgpack:"data_offset"`
}

// Int32MultiArray сообщение с рамками
type Int32MultiArray struct {
	Layout MultiArrayLayout `msgpack:"layout"`
	Data   []int32          `msgpack:"data"`
}

// Marshal кодирует любое сообщение в msgpack.
func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Payload переводит сжатый кадр в доменный вид.
func (m *CompressedImage) Payload() entity.RawImagePayload {
	return entity.RawImagePayload{
		Data:       m.Data,
		Compressed: true,
		Format:     m.Format,
	}
}

// Payload переводит несжатый кадр в доменный вид.
func (m *Image) Payload() entity.RawImagePayload {
	return entity.RawImagePayload{
		Data:     m.Data,
		Width:    int(m.Width),
		Height:   int(m.Height),
		Encoding: m.Encoding,
		Step:     int(m.Step),
	}
}

// DecodeFrame разбирает сообщение канала изображений. Тип сообщения
// задаётся настройкой image_is_compressed, а не содержимым.
func DecodeFrame(data []byte, compressed bool) (entity.RawImagePayload, error) {
	if compressed {
		var m CompressedImage
		if err := msgpack.Unmarshal(data, &m); err != nil {
			return entity.RawImagePayload{}, entity.NewDecodeError("undecodable CompressedImage message", err)
		}
		return m.Payload(), nil
	}

	var m Image
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return entity.RawImagePayload{}, entity.NewDecodeError("undecodable Image message", err)
	}
	return m.Payload(), nil
}

// BoundingBoxSet переводит сообщение в доменный набор рамок.
func (m *Int32MultiArray) BoundingBoxSet() (*entity.BoundingBoxSet, error) {
	if m.Data == nil {
		return nil, entity.NewMalformedBoundingBoxError("no data attribute")
	}
	set := &entity.BoundingBoxSet{
		Data: m.Data,
		Dims: make([]entity.DimensionLabel, 0, len(m.Layout.Dim)),
	}
	for _, d := range m.Layout.Dim {
		set.Dims = append(set.Dims, entity.DimensionLabel{Label: d.Label, Size: int(d.Size)})
	}
	return set, nil
}

// DecodeBoundingBoxes разбирает сообщение канала рамок.
func DecodeBoundingBoxes(data []byte) (*entity.BoundingBoxSet, error) {
	var m Int32MultiArray
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, entity.NewMalformedBoundingBoxError("undecodable Int32MultiArray message: %v", err)
	}
	return m.BoundingBoxSet()
}

// NewBoundingBoxMessage собирает сообщение: в строке 0 эталонные размеры,
// далее по строке на рамку.
func NewBoundingBoxMessage(refWidth, refHeight int, boxes []entity.Box) *Int32MultiArray {
	const columns = 4
	rows := len(boxes) + 1
	data := make([]int32, 0, rows*columns)
	data = append(data, 0, 0, int32(refWidth), int32(refHeight))
	for _, b := range boxes {
		data = append(data, int32(b.Left), int32(b.Top), int32(b.Width), int32(b.Height))
	}
	return &Int32MultiArray{
		Layout: MultiArrayLayout{
			Dim: []MultiArrayDimension{
				{Label: entity.LabelHeight, Size: uint32(rows), Stride: uint32(rows * columns)},
				{Label: entity.LabelWidth, Size: columns, Stride: columns},
			},
		},
		Data: data,
	}
}
