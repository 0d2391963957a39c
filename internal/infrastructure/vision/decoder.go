package vision

import (
	"fmt"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/domain/port"
)

// Поддерживаемые кодировки несжатых кадров.
const (
	EncodingRGB8  = "rgb8"
	EncodingBGR8  = "bgr8"
	EncodingRGBA8 = "rgba8"
	EncodingBGRA8 = "bgra8"
	EncodingMono8 = "mono8"
)

// layout описывает, где в пикселе сырого кадра лежат R, G и B.
type layout struct {
	channels int
	r, g, b  int
}

var rawLayouts = map[string]layout{
	EncodingRGB8:  {channels: 3, r: 0, g: 1, b: 2},
	EncodingBGR8:  {channels: 3, r: 2, g: 1, b: 0},
	EncodingRGBA8: {channels: 4, r: 0, g: 1, b: 2},
	EncodingBGRA8: {channels: 4, r: 2, g: 1, b: 0},
	EncodingMono8: {channels: 1},
}

// Decoder превращает байты из канала изображений в кадр RGB.
//
// Сжатые данные уходят в кодек (см. codec.go и codec_gocv.go), сырые
// копируются с перестановкой каналов. Decoder не хранит состояния, одни
// и те же данные всегда дают одинаковый кадр.
type Decoder struct {
	// DefaultEncoding используется для сырых кадров без кодировки.
	DefaultEncoding string
	// MaxPixels ограничивает width*height, 0 означает DefaultMaxPixels.
	MaxPixels int
}

// NewDecoder создаёт декодер с кодировкой rgb8 для сырых кадров по умолчанию.
func NewDecoder() *Decoder {
	return &Decoder{DefaultEncoding: EncodingRGB8, MaxPixels: DefaultMaxPixels}
}

// Decode декодирует кадр. Ошибка всегда *entity.DecodeError.
func (d *Decoder) Decode(payload entity.RawImagePayload) (*entity.Frame, error) {
	if len(payload.Data) == 0 {
		return nil, entity.NewDecodeError("empty payload", nil)
	}
	if payload.Compressed {
		return decodeCompressed(payload.Data, d.MaxPixels)
	}
	return d.decodeRaw(payload)
}

func (d *Decoder) decodeRaw(payload entity.RawImagePayload) (*entity.Frame, error) {
	encoding := payload.Encoding
	if encoding == "" {
		encoding = d.DefaultEncoding
	}
	l, ok := rawLayouts[encoding]
	if !ok {
		return nil, entity.NewDecodeError(fmt.Sprintf("unsupported raw encoding %q", encoding), nil)
	}
	if payload.Width <= 0 || payload.Height <= 0 {
		return nil, entity.NewDecodeError(
			fmt.Sprintf("raw frame needs width and height, got %dx%d", payload.Width, payload.Height), nil)
	}
	if err := checkPixels(payload.Width, payload.Height, d.MaxPixels); err != nil {
		return nil, err
	}

	rowBytes := payload.Width * l.channels
	step := payload.Step
	if step == 0 {
		step = rowBytes
	}
	if step < rowBytes {
		return nil, entity.NewDecodeError(fmt.Sprintf("step %d is shorter than row %d", step, rowBytes), nil)
	}
	// step приходит из сети как uint32, поэтому длина считается в uint64
	if need := uint64(step)*uint64(payload.Height-1) + uint64(rowBytes); uint64(len(payload.Data)) < need {
		return nil, entity.NewDecodeError(
			fmt.Sprintf("raw buffer too short: %d bytes, need %d", len(payload.Data), need), nil)
	}

	frame := entity.NewFrame(payload.Width, payload.Height)
	dst := frame.Pix
	for y := 0; y < payload.Height; y++ {
		row := payload.Data[y*step : y*step+rowBytes]
		for x := 0; x < payload.Width; x++ {
			px := row[x*l.channels:]
			i := (y*payload.Width + x) * 3
			if l.channels == 1 {
				dst[i], dst[i+1], dst[i+2] = px[0], px[0], px[0]
				continue
			}
			dst[i], dst[i+1], dst[i+2] = px[l.r], px[l.g], px[l.b]
		}
	}
	return frame, nil
}

var _ port.ImageDecoder = (*Decoder)(nil)
