package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maize-bot/internal/domain/entity"
)

func TestDetectionModel_RoundTrip(t *testing.T) {
	detectedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("EAT", 3*60*60))
	record := &entity.HistoryRecord{
		UserID:          "farmer",
		DetectionID:     "detection-1",
		DiseaseName:     "Common Rust",
		Confidence:      88,
		Severity:        entity.SeverityModerate,
		ImageRef:        "/uploads/farmer/1.jpg",
		Recommendations: "Propiconazole: Systemic fungicide",
		DetectedAt:      detectedAt,
	}

	model := toDetectionModel("rec-1", record)
	require.Equal(t, "rec-1", model.ID)
	require.Equal(t, 88, model.ConfidenceLevel)
	require.Equal(t, "Moderate", model.Severity)
	require.Equal(t, "/uploads/farmer/1.jpg", model.ImageURL)
	require.Equal(t, time.UTC, model.DetectedAt.Location())

	back, err := model.toDomain()
	require.NoError(t, err)
	require.Equal(t, "rec-1", back.ID)
	require.Equal(t, record.UserID, back.UserID)
	require.Equal(t, record.DetectionID, back.DetectionID)
	require.Equal(t, record.DiseaseName, back.DiseaseName)
	require.Equal(t, entity.SeverityModerate, back.Severity)
	require.Equal(t, record.Recommendations, back.Recommendations)
	require.True(t, detectedAt.Equal(back.DetectedAt))
}

func TestDetectionModel_UnknownSeverity(t *testing.T) {
	model := detectionModel{ID: "rec-1", Severity: "catastrophic"}
	_, err := model.toDomain()
	require.Error(t, err)
	require.Contains(t, err.Error(), "rec-1")
}

func TestAccountModel_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		confirmed time.Time
	}{
		{name: "unconfirmed", confirmed: time.Time{}},
		{name: "confirmed", confirmed: now.Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &entity.Account{
				ID:           "acc-1",
				Email:        "farmer@example.com",
				Name:         "Amina",
				Phone:        "+254 700 000 000",
				PasswordHash: "hash",
				ConfirmedAt:  tt.confirmed,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			model := fromAccount(acc)
			require.Equal(t, tt.confirmed.IsZero(), model.ConfirmedAt == nil)

			back := model.toDomain()
			require.Equal(t, acc.Phone, back.Phone)
			require.Equal(t, acc.Name, back.Name)
			require.Equal(t, acc.Confirmed(), back.Confirmed())
			require.True(t, acc.ConfirmedAt.Equal(back.ConfirmedAt))
			require.True(t, now.Equal(back.CreatedAt))
		})
	}
}
