package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

var _ port.HistoryRepository = (*HistoryRepository)(nil)

// HistoryRepository история анализов в SQLite
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository создаёт репозиторий поверх открытой базы
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const insertDetectionQuery = `
	INSERT INTO detections (id, user_id, detection_id, disease_name, confidence_level, severity, image_url, recommendations, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create сохраняет запись под новым ID
func (r *HistoryRepository) Create(ctx context.Context, record *entity.HistoryRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	id := uuid.NewString()

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, insertDetectionQuery,
		id,
		record.UserID,
		record.DetectionID,
		record.DiseaseName,
		record.Confidence,
		record.Severity.String(),
		record.ImageRef,
		record.Recommendations,
		record.DetectedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	record.ID = id
	return nil
}

const listDetectionsQuery = `
	SELECT id, user_id, detection_id, disease_name, confidence_level, severity, image_url, recommendations, detected_at
	FROM detections
	WHERE user_id = ?
	ORDER BY detected_at DESC, rowid DESC
`

// ListByUser возвращает записи пользователя, новые первыми
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]*entity.HistoryRecord, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, listDetectionsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.HistoryRecord, 0)
	for rows.Next() {
		var row detectionRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detections: %w", err)
	}
	return records, nil
}

const getDetectionQuery = `
	SELECT id, user_id, detection_id, disease_name, confidence_level, severity, image_url, recommendations, detected_at
	FROM detections
	WHERE id = ? AND user_id = ?
`

// Get возвращает запись владельца
func (r *HistoryRepository) Get(ctx context.Context, userID, recordID string) (*entity.HistoryRecord, error) {
	var row detectionRow
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, getDetectionQuery, recordID, userID).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return row.toDomain()
}

const deleteDetectionQuery = `
	DELETE FROM detections WHERE id = ? AND user_id = ?
`

// Delete удаляет запись владельца. Если строк не удалено, ErrRecordNotFound
func (r *HistoryRepository) Delete(ctx context.Context, userID, recordID string) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, deleteDetectionQuery, recordID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete detection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entity.ErrRecordNotFound
	}
	return nil
}

type detectionRow struct {
	ID              string
	UserID          string
	DetectionID     string
	DiseaseName     string
	Confidence      int
	Severity        string
	ImageURL        string
	Recommendations string
	DetectedAt      int64
}

func (r *detectionRow) fields() []any {
	return []any{
		&r.ID,
		&r.UserID,
		&r.DetectionID,
		&r.DiseaseName,
		&r.Confidence,
		&r.Severity,
		&r.ImageURL,
		&r.Recommendations,
		&r.DetectedAt,
	}
}

func (r *detectionRow) toDomain() (*entity.HistoryRecord, error) {
	severity, err := entity.ParseSeverity(r.Severity)
	if err != nil {
		return nil, fmt.Errorf("detection %s: %w", r.ID, err)
	}
	return &entity.HistoryRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		DetectionID:     r.DetectionID,
		DiseaseName:     r.DiseaseName,
		Confidence:      r.Confidence,
		Severity:        severity,
		ImageRef:        r.ImageURL,
		Recommendations: r.Recommendations,
		DetectedAt:      time.UnixMilli(r.DetectedAt).UTC(),
	}, nil
}
