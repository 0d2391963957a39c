//go:build gocv
// +build gocv

package vision

import (
	"errors"

	"gocv.io/x/gocv"

	"whatlooking/internal/domain/entity"
)

// Annotate рисует рамки геометрии на кадре и возвращает JPEG.
func (a *Annotator) Annotate(frame *entity.Frame, geometry *entity.Geometry) ([]byte, error) {
	mat, err := toBGR(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, box := range boxesFor(frame, geometry) {
		gocv.Rectangle(&mat, box.Rect(), a.Color, a.Thickness)
		gocv.Rectangle(&mat, a.centerMark(box), a.Color, -1)
	}
	return a.encode(mat)
}

// Crop вырезает рамку из кадра и возвращает JPEG.
func (a *Annotator) Crop(frame *entity.Frame, box entity.Box) ([]byte, error) {
	mat, err := toBGR(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	r, err := cropRect(frame, box)
	if err != nil {
		return nil, err
	}
	region := mat.Region(r)
	defer region.Close()
	return a.encode(region)
}

// toBGR копирует кадр в gocv.Mat в порядке каналов OpenCV.
func toBGR(frame *entity.Frame) (gocv.Mat, error) {
	if frame == nil {
		return gocv.NewMat(), errors.New("no frame")
	}
	rgb, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
	return bgr, nil
}

func (a *Annotator) encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), a.Quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
