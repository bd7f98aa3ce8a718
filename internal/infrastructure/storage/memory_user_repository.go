package storage

import (
	"context"
	"sync"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище пользователей
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[int64]*entity.User
	locale entity.Locale
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository(defaultLocale entity.Locale) *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[int64]*entity.User),
		locale: defaultLocale,
	}
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()

	if exists {
		cp := *user
		return &cp, nil
	}

	newUser := entity.NewUser(userID, chatID, r.locale)

	r.mu.Lock()
	if existing, ok := r.users[userID]; ok {
		newUser = existing
	} else {
		r.users[userID] = newUser
	}
	r.mu.Unlock()

	cp := *newUser
	return &cp, nil
}

// UpdateLocale обновляет язык пользователя
func (r *MemoryUserRepository) UpdateLocale(ctx context.Context, userID int64, locale entity.Locale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return port.ErrUserNotFound
	}
	user.SetLocale(locale)
	return nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
