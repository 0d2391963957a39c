package vision

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"whatlooking/internal/domain/entity"
	"whatlooking/internal/infrastructure/msg"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeaderOnly собирает PNG с заявленным размером w x h и пустым IDAT.
func pngHeaderOnly(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk("IHDR", ihdr)

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	require.NoError(t, zw.Close())
	chunk("IDAT", idat.Bytes())
	chunk("IEND", nil)
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func requireShape(t *testing.T, f *entity.Frame, w, h int) {
	t.Helper()
	require.Equal(t, w, f.Width)
	require.Equal(t, h, f.Height)
	rows := f.Pixels()
	require.Len(t, rows, f.Height)
	for _, row := range rows {
		require.Len(t, row, f.Width)
	}
}

func TestDecoder_CompressedJPEG(t *testing.T) {
	d := NewDecoder()
	frame, err := d.Decode(entity.RawImagePayload{Data: encodeJPEG(t, 16, 8), Compressed: true})
	require.NoError(t, err)
	requireShape(t, frame, 16, 8)
}

func TestDecoder_CompressedPNG(t *testing.T) {
	d := NewDecoder()
	frame, err := d.Decode(entity.RawImagePayload{Data: encodePNG(t, 3, 2), Compressed: true})
	require.NoError(t, err)
	requireShape(t, frame, 3, 2)
	require.Equal(t, entity.Pixel{R: 20, G: 10, B: 200}, frame.At(2, 1))
}

func TestDecoder_SinglePixel(t *testing.T) {
	d := NewDecoder()
	frame, err := d.Decode(entity.RawImagePayload{Data: encodePNG(t, 1, 1), Compressed: true})
	require.NoError(t, err)
	requireShape(t, frame, 1, 1)
}

func TestDecoder_Idempotent(t *testing.T) {
	d := NewDecoder()
	payload := entity.RawImagePayload{Data: encodeJPEG(t, 8, 8), Compressed: true}

	a, err := d.Decode(payload)
	require.NoError(t, err)
	b, err := d.Decode(payload)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestDecoder_MalformedCompressed(t *testing.T) {
	valid := encodeJPEG(t, 8, 8)
	random := make([]byte, 256)
	rand.New(rand.NewSource(1)).Read(random)

	cases := map[string][]byte{
		"empty":     {},
		"nil":       nil,
		"truncated": valid[:len(valid)/3],
		"random":    random,
		"text":      []byte("not an image"),
		"huge png":  pngHeaderOnly(t, 60000, 60000),
	}

	d := NewDecoder()
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			frame, err := d.Decode(entity.RawImagePayload{Data: data, Compressed: true})
			require.ErrorIs(t, err, entity.ErrDecode)
			require.Nil(t, frame)

			var decodeErr *entity.DecodeError
			require.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestDecoder_RawRGB(t *testing.T) {
	d := NewDecoder()
	data := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	frame, err := d.Decode(entity.RawImagePayload{Data: data, Width: 2, Height: 2, Encoding: EncodingRGB8})
	require.NoError(t, err)
	requireShape(t, frame, 2, 2)
	require.Equal(t, entity.Pixel{R: 10, G: 11, B: 12}, frame.At(1, 1))
}

func TestDecoder_RawEncodings(t *testing.T) {
	d := NewDecoder()
	cases := []struct {
		encoding string
		data     []byte
		want     entity.Pixel
	}{
		{EncodingBGR8, []byte{3, 2, 1}, entity.Pixel{R: 1, G: 2, B: 3}},
		{EncodingRGBA8, []byte{1, 2, 3, 255}, entity.Pixel{R: 1, G: 2, B: 3}},
		{EncodingBGRA8, []byte{3, 2, 1, 255}, entity.Pixel{R: 1, G: 2, B: 3}},
		{EncodingMono8, []byte{9}, entity.Pixel{R: 9, G: 9, B: 9}},
		{"", []byte{1, 2, 3}, entity.Pixel{R: 1, G: 2, B: 3}},
	}
	for _, tc := range cases {
		frame, err := d.Decode(entity.RawImagePayload{Data: tc.data, Width: 1, Height: 1, Encoding: tc.encoding})
		require.NoError(t, err, tc.encoding)
		require.Equal(t, tc.want, frame.At(0, 0), tc.encoding)
	}
}

func TestDecoder_RawWithStepPadding(t *testing.T) {
	d := NewDecoder()
	data := []byte{
		1, 1, 1, 0, 0,
		2, 2, 2,
	}
	frame, err := d.Decode(entity.RawImagePayload{Data: data, Width: 1, Height: 2, Step: 5})
	require.NoError(t, err)
	require.Equal(t, entity.Pixel{R: 2, G: 2, B: 2}, frame.At(0, 1))
}

func TestDecoder_RawErrors(t *testing.T) {
	d := NewDecoder()
	cases := map[string]entity.RawImagePayload{
		"no size":      {Data: []byte{1, 2, 3}},
		"short buffer": {Data: make([]byte, 11), Width: 2, Height: 2},
		"bad encoding": {Data: []byte{1, 2, 3}, Width: 1, Height: 1, Encoding: "yuv422"},
		"short step":   {Data: make([]byte, 12), Width: 2, Height: 2, Step: 3},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Decode(payload)
			require.ErrorIs(t, err, entity.ErrDecode)
		})
	}
}

func TestDecoder_RejectsFramesOverPixelLimit(t *testing.T) {
	d := NewDecoder()
	d.MaxPixels = 16

	_, err := d.Decode(entity.RawImagePayload{Data: encodePNG(t, 8, 8), Compressed: true})
	require.ErrorIs(t, err, entity.ErrDecode)

	_, err = d.Decode(entity.RawImagePayload{Data: make([]byte, 8*8*3), Width: 8, Height: 8})
	require.ErrorIs(t, err, entity.ErrDecode)

	frame, err := d.Decode(entity.RawImagePayload{Data: make([]byte, 4*4*3), Width: 4, Height: 4})
	require.NoError(t, err)
	requireShape(t, frame, 4, 4)
}

func TestDecoder_RawHugeDimensionsFromWire(t *testing.T) {
	d := NewDecoder()
	cases := map[string]*msg.Image{
		"overflowing step": {Width: 1, Height: 1<<31 + 3, Encoding: EncodingMono8, Step: 1<<32 - 1, Data: make([]byte, 16)},
		"huge width":       {Width: 1<<32 - 1, Height: 1, Encoding: EncodingMono8, Data: make([]byte, 16)},
		"step past buffer": {Width: 1, Height: 2, Encoding: EncodingMono8, Step: 1<<32 - 1, Data: make([]byte, 16)},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			frame, err := d.Decode(m.Payload())
			require.ErrorIs(t, err, entity.ErrDecode)
			require.Nil(t, frame)
		})
	}
}

func TestCheckPixels(t *testing.T) {
	require.NoError(t, checkPixels(8192, 4096, 0))
	require.ErrorIs(t, checkPixels(8192, 4097, 0), entity.ErrDecode)
	require.ErrorIs(t, checkPixels(1<<31-1, 1<<31-1, 1<<30), entity.ErrDecode)
	require.ErrorIs(t, checkPixels(0, 10, 100), entity.ErrDecode)
}
