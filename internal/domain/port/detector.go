package port

import (
	"context"

	"maize-bot/internal/domain/entity"
)

// Detector интерфейс распознавания болезни по снимку листа
type Detector interface {
	// Detect анализирует снимок и возвращает диагноз
	Detect(ctx context.Context, image *entity.ImageHandle) (*entity.DetectionResult, error)
}

// ImageDecoder проверяет, что байты действительно являются изображением
type ImageDecoder interface {
	// Decode возвращает размеры и MIME-тип изображения
	Decode(data []byte) (width, height int, mimeType string, err error)
}
