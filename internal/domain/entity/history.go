package entity

import "time"

// HistoryRecord сохранённый результат анализа, привязанный к аккаунту
type HistoryRecord struct {
	ID              string
	UserID          string
	DetectionID     string
	DiseaseName     string
	Confidence      int
	Severity        Severity
	ImageRef        string
	Recommendations string
	DetectedAt      time.Time
}

// NewHistoryRecord собирает запись из результата. ID назначает хранилище.
func NewHistoryRecord(userID string, result *DetectionResult, imageRef string) *HistoryRecord {
	detectedAt := result.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}
	if imageRef == "" {
		imageRef = result.ImageRef
	}
	return &HistoryRecord{
		UserID:          userID,
		DetectionID:     result.ID,
		DiseaseName:     result.DiseaseName,
		Confidence:      result.Confidence,
		Severity:        result.Severity,
		ImageRef:        imageRef,
		Recommendations: result.Recommendations(),
		DetectedAt:      detectedAt,
	}
}
