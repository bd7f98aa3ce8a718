package app

import (
	"context"

	"go.uber.org/zap"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// UserService настройки пользователя чата
type UserService struct {
	users         port.UserRepository
	defaultLocale entity.Locale
	logger        *zap.Logger
}

func NewUserService(users port.UserRepository, defaultLocale entity.Locale, logger *zap.Logger) *UserService {
	if _, ok := entity.ParseLocale(string(defaultLocale)); !ok {
		defaultLocale = entity.LocaleEnglish
	}
	return &UserService{
		users:         users,
		defaultLocale: defaultLocale,
		logger:        logger.Named("user_service"),
	}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.users.Get(ctx, userID, chatID)
}

// Locale язык пользователя. При ошибке хранилища отвечаем на языке по умолчанию.
func (s *UserService) Locale(ctx context.Context, userID, chatID int64) entity.Locale {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		s.logger.Warn("failed to load user", zap.Int64("user_id", userID), zap.Error(err))
		return s.defaultLocale
	}
	return user.Locale
}

// SetLocale запоминает язык сообщений для пользователя.
func (s *UserService) SetLocale(ctx context.Context, userID, chatID int64, locale entity.Locale) (*entity.User, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLocale(ctx, user.ID, locale); err != nil {
		return nil, err
	}

	user.SetLocale(locale)
	return user, nil
}
