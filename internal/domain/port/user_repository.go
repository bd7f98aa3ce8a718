package port

import (
	"context"
	"errors"

	"maize-bot/internal/domain/entity"
)

// ErrUserNotFound пользователь ещё не заходил в бота
var ErrUserNotFound = errors.New("user not found")

// UserRepository интерфейс хранилища пользователей
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// UpdateLocale обновляет язык пользователя
	UpdateLocale(ctx context.Context, userID int64, locale entity.Locale) error
}
