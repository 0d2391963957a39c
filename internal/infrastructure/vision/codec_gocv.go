//go:build gocv
// +build gocv

package vision

import (
	"errors"

	"gocv.io/x/gocv"

	"whatlooking/internal/domain/entity"
)

// decodeCompressed распаковывает кадр через OpenCV. Размеры из заголовка
// проверяются заранее: OpenCV выделяет память под объявленный размер.
func decodeCompressed(data []byte, maxPixels int) (*entity.Frame, error) {
	if err := checkHeader(data, maxPixels); err != nil {
		return nil, err
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, entity.NewDecodeError("unsupported or corrupt stream", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, entity.NewDecodeError("unsupported or corrupt stream", errors.New("opencv returned empty mat"))
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	return &entity.Frame{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}
