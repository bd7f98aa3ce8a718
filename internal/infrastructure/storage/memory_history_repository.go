package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// storedRecord запись с порядковым номером вставки
type storedRecord struct {
	record entity.HistoryRecord
	seq    uint64
}

// MemoryHistoryRepository in-memory история анализов
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	records map[string]*storedRecord
	nextSeq uint64
}

// NewMemoryHistoryRepository создаёт пустую историю
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{
		records: make(map[string]*storedRecord),
	}
}

// Create сохраняет запись под новым ID
func (r *MemoryHistoryRepository) Create(ctx context.Context, record *entity.HistoryRecord) error {
	record.ID = uuid.NewString()

	r.mu.Lock()
	r.nextSeq++
	r.records[record.ID] = &storedRecord{record: *record, seq: r.nextSeq}
	r.mu.Unlock()

	return nil
}

// ListByUser возвращает копии записей пользователя, новые первыми.
// При равном времени анализа первой идёт запись, добавленная позже.
func (r *MemoryHistoryRepository) ListByUser(ctx context.Context, userID string) ([]*entity.HistoryRecord, error) {
	r.mu.RLock()
	matched := make([]*storedRecord, 0)
	for _, stored := range r.records {
		if stored.record.UserID == userID {
			matched = append(matched, stored)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.DetectedAt.Equal(b.record.DetectedAt) {
			return a.record.DetectedAt.After(b.record.DetectedAt)
		}
		return a.seq > b.seq
	})

	out := make([]*entity.HistoryRecord, 0, len(matched))
	for _, stored := range matched {
		cp := stored.record
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	return out, nil
}

// Get возвращает запись владельца
func (r *MemoryHistoryRepository) Get(ctx context.Context, userID, recordID string) (*entity.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.records[recordID]
	if !ok || stored.record.UserID != userID {
		return nil, entity.ErrRecordNotFound
	}
	cp := stored.record
	return &cp, nil
}

// Delete удаляет запись владельца
func (r *MemoryHistoryRepository) Delete(ctx context.Context, userID, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[recordID]
	if !ok || stored.record.UserID != userID {
		return entity.ErrRecordNotFound
	}
	delete(r.records, recordID)
	return nil
}

var _ port.HistoryRepository = (*MemoryHistoryRepository)(nil)
