package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maize-bot/internal/auth"
	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

var (
	// ErrInvalidCredentials неверная почта или пароль
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotConfirmed почта ещё не подтверждена
	ErrNotConfirmed = errors.New("email is not confirmed")
	// ErrInvalidEmail почта не похожа на адрес
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrNameRequired пустое имя профиля
	ErrNameRequired = errors.New("name is required")
	// ErrInvalidPhone телефон не похож на номер
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrSignInRequired операция доступна только после входа
	ErrSignInRequired = errors.New("sign in required")
)

const (
	confirmTokenTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour

	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// AccountService регистрация, вход, сброс пароля и профиль.
// Он же отвечает за текущую личность пользователя чата.
type AccountService struct {
	accounts   port.AccountRepository
	sessions   port.SessionStore
	mailer     port.Mailer
	tokens     *auth.TokenIssuer
	publicURL  string
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAccountService создаёт сервис аккаунтов
func NewAccountService(accounts port.AccountRepository, sessions port.SessionStore, mailer port.Mailer, tokens *auth.TokenIssuer, publicURL string, sessionTTL time.Duration, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts:   accounts,
		sessions:   sessions,
		mailer:     mailer,
		tokens:     tokens,
		publicURL:  strings.TrimRight(publicURL, "/"),
		sessionTTL: sessionTTL,
		logger:     logger.Named("account_service"),
		now:        time.Now,
	}
}

// Signup создаёт неподтверждённый аккаунт и отправляет письмо подтверждения.
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (*entity.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &entity.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(account.ID, auth.PurposeConfirm, "", confirmTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue confirmation token: %w", err)
	}
	body := fmt.Sprintf("Confirm your account: %s/confirm-account?token=%s\nOr send /confirm %s to the bot.", s.publicURL, token, token)
	if err := s.mailer.Send(ctx, email, "Confirm your account", body); err != nil {
		return nil, fmt.Errorf("send confirmation: %w", err)
	}

	s.logger.Info("account created", zap.String("account_id", account.ID))
	return account, nil
}

// Confirm подтверждает почту по токену из письма.
func (s *AccountService) Confirm(ctx context.Context, token string) (*entity.Account, error) {
	accountID, _, err := s.tokens.Parse(token, auth.PurposeConfirm)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Confirmed() {
		return account, nil
	}
	account.ConfirmedAt = s.now().UTC()
	account.UpdatedAt = account.ConfirmedAt
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login проверяет пароль и привязывает пользователя чата к аккаунту.
func (s *AccountService) Login(ctx context.Context, chatUserID int64, email, password string) (*entity.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, port.ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !account.Confirmed() {
		return nil, ErrNotConfirmed
	}

	if err := s.sessions.Bind(ctx, chatUserID, account.ID, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("bind session: %w", err)
	}
	return account, nil
}

// Logout отвязывает пользователя чата от аккаунта
func (s *AccountService) Logout(ctx context.Context, chatUserID int64) error {
	return s.sessions.Drop(ctx, chatUserID)
}

// RequestPasswordReset отправляет ссылку сброса. Для неизвестной почты
// тихо ничего не делает.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, port.ErrAccountNotFound) {
		s.logger.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.tokens.Issue(account.ID, auth.PurposeReset, auth.PasswordStamp(account.PasswordHash), resetTokenTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	body := fmt.Sprintf("Reset your password: %s/update-password?token=%s\nOr send /newpassword %s <password> to the bot.", s.publicURL, token, token)
	return s.mailer.Send(ctx, account.Email, "Reset your password", body)
}

// UpdatePassword меняет пароль по токену сброса. Токен выпущен под
// текущий хеш пароля, поэтому срабатывает один раз.
func (s *AccountService) UpdatePassword(ctx context.Context, token, newPassword string) error {
	accountID, stamp, err := s.tokens.Parse(token, auth.PurposeReset)
	if err != nil {
		return err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, port.ErrAccountNotFound) {
		return auth.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if stamp != auth.PasswordStamp(account.PasswordHash) {
		return auth.ErrInvalidToken
	}
	return s.setPassword(ctx, account, newPassword)
}

// ChangePassword меняет пароль вошедшего пользователя чата и завершает его
// сессию: дальше нужен вход с новым паролем.
func (s *AccountService) ChangePassword(ctx context.Context, chatUserID int64, newPassword string) error {
	accountID, ok, err := s.sessions.Lookup(ctx, chatUserID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return ErrSignInRequired
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, account, newPassword); err != nil {
		return err
	}
	if err := s.sessions.Drop(ctx, chatUserID); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	s.logger.Info("password changed", zap.String("account_id", account.ID))
	return nil
}

func (s *AccountService) setPassword(ctx context.Context, account *entity.Account, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	account.UpdatedAt = s.now().UTC()
	return s.accounts.Update(ctx, account)
}

// Profile возвращает аккаунт текущего пользователя
func (s *AccountService) Profile(ctx context.Context, accountID string) (*entity.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// UpdateProfile меняет имя и телефон в профиле. Пустой телефон удаляет номер.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name, phone string) (*entity.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account.Name = name
	account.Phone = phone
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// CurrentUserID реализует port.Identity: ID аккаунта пользователя чата из
// контекста или false для гостя.
func (s *AccountService) CurrentUserID(ctx context.Context) (string, bool) {
	chatUserID, ok := auth.ChatUser(ctx)
	if !ok {
		return "", false
	}
	accountID, ok, err := s.sessions.Lookup(ctx, chatUserID)
	if err != nil {
		s.logger.Warn("session lookup failed", zap.Int64("chat_user_id", chatUserID), zap.Error(err))
		return "", false
	}
	return accountID, ok
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// normalizePhone убирает пробелы по краям и проверяет номер: необязательный
// ведущий +, цифры и разделители пробел, дефис, скобки.
func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ', r == '-', r == '(', r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

var _ port.Identity = (*AccountService)(nil)
