package entity

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxCenter(t *testing.T) {
	b := Box{Left: 10, Top: 20, Width: 8, Height: 6}
	x, y := b.Center()
	require.Equal(t, 14, x)
	require.Equal(t, 23, y)
}

func TestBoxRect(t *testing.T) {
	b := Box{Left: 10, Top: 20, Width: 30, Height: 40}
	require.Equal(t, image.Rect(10, 20, 40, 60), b.Rect())
}

func TestBoxScale(t *testing.T) {
	b := Box{Left: 10, Top: 20, Width: 30, Height: 40}
	require.Equal(t, Box{Left: 5, Top: 10, Width: 15, Height: 20}, b.Scale(0.5, 0.5))
}
