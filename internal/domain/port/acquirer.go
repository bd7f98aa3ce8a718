package port

import (
	"context"

	"maize-bot/internal/domain/entity"
)

// ImageAcquirer получает снимок с камеры или из галереи
type ImageAcquirer interface {
	// RequestPermission запрашивает доступ к источнику
	RequestPermission(ctx context.Context, kind entity.AcquisitionKind) (bool, error)

	// Acquire возвращает снимок. nil без ошибки означает отмену пользователем.
	Acquire(ctx context.Context, kind entity.AcquisitionKind) (*entity.ImageHandle, error)
}
