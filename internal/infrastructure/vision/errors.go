package vision

import "errors"

var (
	// ErrNotImage данные не раскодируются как изображение
	ErrNotImage = errors.New("data is not a supported image")
	// ErrImageTooSmall снимок меньше минимального размера
	ErrImageTooSmall = errors.New("image is too small")
)

// DefaultMinImageSide минимальная сторона снимка листа в пикселях
const DefaultMinImageSide = 64
