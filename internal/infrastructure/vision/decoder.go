//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"net/http"

	"gocv.io/x/gocv"

	"maize-bot/internal/domain/port"
)

// Decoder проверяет снимок через OpenCV: раскодирование, размер и резкость.
type Decoder struct {
	MinImageSide          int
	MinSharpnessEdgeRatio float64
}

// NewDecoder создаёт проверку снимков с минимальной стороной minSide.
func NewDecoder(minSide int) *Decoder {
	return &Decoder{
		MinImageSide:          minSide,
		MinSharpnessEdgeRatio: 0.004,
	}
}

// Decode раскодирует байты и возвращает размеры и MIME-тип.
func (d *Decoder) Decode(data []byte) (int, int, string, error) {
	if len(data) == 0 {
		return 0, 0, "", ErrNotImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	defer mat.Close()
	if err != nil || mat.Empty() {
		return 0, 0, "", ErrNotImage
	}

	if err := d.checkImageQuality(mat); err != nil {
		return 0, 0, "", err
	}

	return mat.Cols(), mat.Rows(), http.DetectContentType(data), nil
}

func (d *Decoder) checkImageQuality(mat gocv.Mat) error {
	if mat.Cols() < d.MinImageSide || mat.Rows() < d.MinImageSide {
		return fmt.Errorf("%w (%dx%d)", ErrImageTooSmall, mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)

	total := edges.Cols() * edges.Rows()
	if total <= 0 {
		return errors.New("empty image")
	}
	edgeRatio := float64(gocv.CountNonZero(edges)) / float64(total)
	if edgeRatio < d.MinSharpnessEdgeRatio {
		return fmt.Errorf("image is blurry (edge_ratio=%.4f)", edgeRatio)
	}
	return nil
}

var _ port.ImageDecoder = (*Decoder)(nil)
