package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame_PixelsShape(t *testing.T) {
	f := NewFrame(3, 2)
	f.Set(2, 1, Pixel{R: 1, G: 2, B: 3})

	rows := f.Pixels()
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Len(t, row, 3)
	}
	require.Equal(t, Pixel{R: 1, G: 2, B: 3}, rows[1][2])
}

func TestFrame_Image(t *testing.T) {
	f := NewFrame(1, 1)
	f.Set(0, 0, Pixel{R: 10, G: 20, B: 30})

	img := f.Image()
	require.Equal(t, []uint8{10, 20, 30, 255}, img.Pix)
}

func TestFrame_Equal(t *testing.T) {
	a := NewFrame(2, 2)
	b := NewFrame(2, 2)
	require.True(t, a.Equal(b))

	b.Set(1, 1, Pixel{R: 1})
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(NewFrame(2, 1)))
}
