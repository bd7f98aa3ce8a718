package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
	"maize-bot/internal/logging"
)

// HistoryService сохраняет, выдаёт и удаляет результаты анализов.
// Владение записью проверяет хранилище; сервис передаёт userID дальше.
type HistoryService struct {
	repo           port.HistoryRepository
	images         port.ImageStore
	logger         *zap.Logger
	now            func() time.Time
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewHistoryService создаёт сервис. images может быть nil: тогда запись
// ссылается на превью из результата.
func NewHistoryService(repo port.HistoryRepository, images port.ImageStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		repo:           repo,
		images:         images,
		logger:         logger.Named("history_service"),
		now:            time.Now,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Save загружает снимок и создаёт запись. Дедупликации нет: два вызова дают
// две записи.
func (s *HistoryService) Save(ctx context.Context, userID string, result *entity.DetectionResult, image *entity.ImageHandle) (*entity.HistoryRecord, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if result == nil {
		return nil, errors.New("detection result is required")
	}

	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "history.save", requestID)

	imageRef := ""
	if s.images != nil && image != nil {
		path := imagePath(userID, s.now(), requestID, image.Extension())
		if err := s.withRetry(ctx, "history.upload_image", requestID, func() error {
			ref, err := s.images.Put(ctx, path, image)
			if err != nil {
				return err
			}
			imageRef = ref
			return nil
		}); err != nil {
			opLogger.Error("failed to upload source image", zap.Error(err))
			return nil, err
		}
	}

	record := entity.NewHistoryRecord(userID, result, imageRef)
	if err := s.withRetry(ctx, "history.create", requestID, func() error {
		return s.repo.Create(ctx, record)
	}); err != nil {
		opLogger.Error("failed to persist history record", zap.Error(err))
		if imageRef != "" {
			if delErr := s.images.Delete(ctx, imageRef); delErr != nil {
				opLogger.Warn("failed to remove orphaned image", zap.Error(delErr), zap.String("image_ref", imageRef))
			}
		}
		return nil, err
	}

	opLogger.Info("detection saved", zap.String("record_id", record.ID), zap.String("user_id", userID))
	return record, nil
}

// List возвращает историю пользователя, новые записи первыми.
func (s *HistoryService) List(ctx context.Context, userID string) ([]*entity.HistoryRecord, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var records []*entity.HistoryRecord
	err := s.withRetry(ctx, "history.list", "", func() error {
		list, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete удаляет запись владельца. Для отсутствующей или чужой записи ошибка.
func (s *HistoryService) Delete(ctx context.Context, userID, recordID string) error {
	if userID == "" || recordID == "" {
		return entity.ErrRecordNotFound
	}

	record, err := s.repo.Get(ctx, userID, recordID)
	if err != nil {
		return err
	}

	if err := s.withRetry(ctx, "history.delete", recordID, func() error {
		return s.repo.Delete(ctx, userID, recordID)
	}); err != nil {
		return err
	}

	if s.images != nil && record.ImageRef != "" {
		if err := s.images.Delete(ctx, record.ImageRef); err != nil {
			logging.WithOperation(s.logger, "history.delete_image", recordID).
				Warn("failed to remove stored image", zap.Error(err), zap.String("image_ref", record.ImageRef))
		}
	}
	return nil
}

// imagePath путь снимка: <userID>/<unix-ms>-<id>.<ext>. id уникален для
// каждого сохранения, поэтому записи не делят один файл.
func imagePath(userID string, at time.Time, id, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", userID, at.UnixMilli(), id, ext)
}

func (s *HistoryService) withRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	backoff := s.initialBackoff
	opLogger := logging.WithOperation(s.logger, operation, requestID)

	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= s.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("storage operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, entity.ErrRecordNotFound) {
			return err
		}
		if !isTransientError(err) || attempt == s.retryAttempts-1 {
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient storage error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
