package port

import (
	"context"

	"maize-bot/internal/domain/entity"
)

// HistoryRepository интерфейс хранилища истории анализов
type HistoryRepository interface {
	// Create сохраняет запись и назначает ей ID
	Create(ctx context.Context, record *entity.HistoryRecord) error

	// ListByUser возвращает записи пользователя, новые первыми
	ListByUser(ctx context.Context, userID string) ([]*entity.HistoryRecord, error)

	// Get возвращает запись владельца или entity.ErrRecordNotFound
	Get(ctx context.Context, userID, recordID string) (*entity.HistoryRecord, error)

	// Delete удаляет запись владельца. Для чужой или отсутствующей записи entity.ErrRecordNotFound
	Delete(ctx context.Context, userID, recordID string) error
}

// ImageStore хранилище исходных снимков
type ImageStore interface {
	// Put сохраняет снимок и возвращает ссылку на него
	Put(ctx context.Context, path string, image *entity.ImageHandle) (string, error)

	// Delete удаляет снимок по ссылке
	Delete(ctx context.Context, ref string) error
}
