package port

import (
	"context"
	"errors"
	"time"

	"maize-bot/internal/domain/entity"
)

var (
	// ErrAccountNotFound аккаунт не найден
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailTaken почта уже зарегистрирована
	ErrEmailTaken = errors.New("email already registered")
)

// AccountRepository интерфейс хранилища аккаунтов
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Update(ctx context.Context, account *entity.Account) error
}

// SessionStore связывает пользователя чата с аккаунтом
type SessionStore interface {
	Bind(ctx context.Context, chatUserID int64, accountID string, ttl time.Duration) error
	Lookup(ctx context.Context, chatUserID int64) (string, bool, error)
	Drop(ctx context.Context, chatUserID int64) error
}

// Mailer доставляет письма со ссылками подтверждения и сброса пароля
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Identity сообщает текущего аутентифицированного пользователя
type Identity interface {
	// CurrentUserID возвращает ID аккаунта или false для гостя
	CurrentUserID(ctx context.Context) (string, bool)
}
