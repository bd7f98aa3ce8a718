package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// detectionModel строка таблицы detections
type detectionModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Seq             int64     `gorm:"column:seq;autoIncrement;not null;uniqueIndex"`
	UserID          string    `gorm:"column:user_id;size:64;index:idx_detections_user_detected,priority:1"`
	DetectionID     string    `gorm:"column:detection_id;size:64"`
	DiseaseName     string    `gorm:"column:disease_name;size:128"`
	ConfidenceLevel int       `gorm:"column:confidence_level;check:confidence_level BETWEEN 0 AND 100"`
	Severity        string    `gorm:"column:severity;size:16"`
	ImageURL        string    `gorm:"column:image_url;type:text"`
	Recommendations string    `gorm:"column:recommendations;type:text"`
	DetectedAt      time.Time `gorm:"column:detected_at;index:idx_detections_user_detected,priority:2,sort:desc"`
}

// TableName задаёт имя таблицы
func (detectionModel) TableName() string {
	return "detections"
}

// HistoryRepository история анализов в Postgres через gorm
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository создаёт репозиторий
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create сохраняет запись под новым ID
func (r *HistoryRepository) Create(ctx context.Context, record *entity.HistoryRecord) error {
	model := toDetectionModel(uuid.NewString(), record)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	record.ID = model.ID
	return nil
}

// ListByUser возвращает записи пользователя, новые первыми
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]*entity.HistoryRecord, error) {
	var models []detectionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("detected_at DESC").
		Order("seq DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]*entity.HistoryRecord, 0, len(models))
	for i := range models {
		rec, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get возвращает запись владельца
func (r *HistoryRepository) Get(ctx context.Context, userID, recordID string) (*entity.HistoryRecord, error) {
	var model detectionModel
	err := r.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", recordID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.toDomain()
}

// Delete удаляет запись владельца
func (r *HistoryRepository) Delete(ctx context.Context, userID, recordID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", recordID, userID).Delete(&detectionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrRecordNotFound
	}
	return nil
}

func toDetectionModel(id string, record *entity.HistoryRecord) detectionModel {
	return detectionModel{
		ID:              id,
		UserID:          record.UserID,
		DetectionID:     record.DetectionID,
		DiseaseName:     record.DiseaseName,
		ConfidenceLevel: record.Confidence,
		Severity:        record.Severity.String(),
		ImageURL:        record.ImageRef,
		Recommendations: record.Recommendations,
		DetectedAt:      record.DetectedAt.UTC(),
	}
}

func (m *detectionModel) toDomain() (*entity.HistoryRecord, error) {
	severity, err := entity.ParseSeverity(m.Severity)
	if err != nil {
		return nil, fmt.Errorf("detection %s: %w", m.ID, err)
	}
	return &entity.HistoryRecord{
		ID:              m.ID,
		UserID:          m.UserID,
		DetectionID:     m.DetectionID,
		DiseaseName:     m.DiseaseName,
		Confidence:      m.ConfidenceLevel,
		Severity:        severity,
		ImageRef:        m.ImageURL,
		Recommendations: m.Recommendations,
		DetectedAt:      m.DetectedAt.UTC(),
	}, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
