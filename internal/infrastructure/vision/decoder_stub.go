//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"maize-bot/internal/domain/port"
)

// Decoder проверяет снимок стандартными декодерами (сборка без OpenCV).
// Читается только заголовок, пиксели не раскодируются.
type Decoder struct {
	MinImageSide int
}

// NewDecoder создаёт проверку снимков с минимальной стороной minSide.
func NewDecoder(minSide int) *Decoder {
	return &Decoder{MinImageSide: minSide}
}

// Decode возвращает размеры и MIME-тип изображения.
func (d *Decoder) Decode(data []byte) (int, int, string, error) {
	if len(data) == 0 {
		return 0, 0, "", ErrNotImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width < d.MinImageSide || cfg.Height < d.MinImageSide {
		return 0, 0, "", fmt.Errorf("%w (%dx%d)", ErrImageTooSmall, cfg.Width, cfg.Height)
	}

	return cfg.Width, cfg.Height, "image/" + format, nil
}

var _ port.ImageDecoder = (*Decoder)(nil)
