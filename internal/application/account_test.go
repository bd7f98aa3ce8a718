package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maize-bot/internal/auth"
	"maize-bot/internal/domain/port"
	"maize-bot/internal/infrastructure/storage"
)

type captureMailer struct {
	mu     sync.Mutex
	bodies map[string][]string
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bodies == nil {
		m.bodies = map[string][]string{}
	}
	m.bodies[to] = append(m.bodies[to], body)
	return nil
}

// lastToken достаёт токен из последнего письма адресату
func (m *captureMailer) lastToken(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := m.bodies[to]
	require.NotEmpty(t, bodies)
	body := bodies[len(bodies)-1]

	start := strings.Index(body, "token=")
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len("token="):]
	if end := strings.IndexAny(rest, "\n "); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func newTestAccountService(t *testing.T) (*AccountService, *captureMailer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", "maize-bot")
	require.NoError(t, err)

	mailer := &captureMailer{}
	svc := NewAccountService(storage.NewMemoryAccountRepository(), storage.NewMemorySessionStore(), mailer, tokens, "http://localhost:8080/", time.Hour, zap.NewNop())
	return svc, mailer
}

func TestAccountService_SignupConfirmLogin(t *testing.T) {
	svc, mailer := newTestAccountService(t)
	ctx := auth.WithChatUser(context.Background(), 42)

	acc, err := svc.Signup(ctx, "  Farmer@Example.com ", "secret1", "Maize Farmer")
	require.NoError(t, err)
	require.Equal(t, "farmer@example.com", acc.Email)
	require.False(t, acc.Confirmed())

	_, err = svc.Signup(ctx, "farmer@example.com", "secret1", "Second")
	require.ErrorIs(t, err, port.ErrEmailTaken)

	_, err = svc.Login(ctx, 42, "farmer@example.com", "secret1")
	require.ErrorIs(t, err, ErrNotConfirmed)

	token := mailer.lastToken(t, "farmer@example.com")
	confirmed, err := svc.Confirm(ctx, token)
	require.NoError(t, err)
	require.True(t, confirmed.Confirmed())

	_, ok := svc.CurrentUserID(ctx)
	require.False(t, ok)

	_, err = svc.Login(ctx, 42, "farmer@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, 42, "farmer@example.com", "secret1")
	require.NoError(t, err)

	userID, ok := svc.CurrentUserID(ctx)
	require.True(t, ok)
	require.Equal(t, acc.ID, userID)

	_, ok = svc.CurrentUserID(context.Background())
	require.False(t, ok)

	require.NoError(t, svc.Logout(ctx, 42))
	_, ok = svc.CurrentUserID(ctx)
	require.False(t, ok)
}

func TestAccountService_SignupValidation(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "not-an-email", "secret1", "Name")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Signup(ctx, "a@example.com", "123", "Name")
	require.ErrorIs(t, err, auth.ErrPasswordTooShort)

	_, err = svc.Signup(ctx, "a@example.com", "secret1", "   ")
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestAccountService_PasswordReset(t *testing.T) {
	svc, mailer := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "farmer@example.com", "secret1", "Farmer")
	require.NoError(t, err)
	confirmToken := mailer.lastToken(t, "farmer@example.com")
	_, err = svc.Confirm(ctx, confirmToken)
	require.NoError(t, err)

	// неизвестная почта не раскрывается
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))

	require.NoError(t, svc.RequestPasswordReset(ctx, "farmer@example.com"))
	resetToken := mailer.lastToken(t, "farmer@example.com")

	// токен подтверждения не подходит для сброса
	require.ErrorIs(t, svc.UpdatePassword(ctx, confirmToken, "new-secret"), auth.ErrInvalidToken)

	require.NoError(t, svc.UpdatePassword(ctx, resetToken, "new-secret"))

	_, err = svc.Login(ctx, 7, "farmer@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, 7, "farmer@example.com", "new-secret")
	require.NoError(t, err)
}

func TestAccountService_ResetTokenWorksOnce(t *testing.T) {
	svc, mailer := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "farmer@example.com", "secret1", "Farmer")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, mailer.lastToken(t, "farmer@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "farmer@example.com"))
	first := mailer.lastToken(t, "farmer@example.com")
	require.NoError(t, svc.RequestPasswordReset(ctx, "farmer@example.com"))
	second := mailer.lastToken(t, "farmer@example.com")

	require.NoError(t, svc.UpdatePassword(ctx, first, "owner-new"))

	// повтор того же токена и более ранний токен уже не действуют
	require.ErrorIs(t, svc.UpdatePassword(ctx, first, "attacker1"), auth.ErrInvalidToken)
	require.ErrorIs(t, svc.UpdatePassword(ctx, second, "attacker1"), auth.ErrInvalidToken)

	_, err = svc.Login(ctx, 7, "farmer@example.com", "attacker1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, 7, "farmer@example.com", "owner-new")
	require.NoError(t, err)

	// новый запрос сброса выдаёт рабочий токен
	require.NoError(t, svc.RequestPasswordReset(ctx, "farmer@example.com"))
	require.NoError(t, svc.UpdatePassword(ctx, mailer.lastToken(t, "farmer@example.com"), "owner-newer"))
}

func TestAccountService_ChangePassword(t *testing.T) {
	svc, mailer := newTestAccountService(t)
	ctx := auth.WithChatUser(context.Background(), 42)

	require.ErrorIs(t, svc.ChangePassword(ctx, 42, "new-secret"), ErrSignInRequired)

	_, err := svc.Signup(ctx, "farmer@example.com", "secret1", "Farmer")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, mailer.lastToken(t, "farmer@example.com"))
	require.NoError(t, err)
	_, err = svc.Login(ctx, 42, "farmer@example.com", "secret1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, 42, "123"), auth.ErrPasswordTooShort)
	_, ok := svc.CurrentUserID(ctx)
	require.True(t, ok)

	require.NoError(t, svc.ChangePassword(ctx, 42, "new-secret"))
	_, ok = svc.CurrentUserID(ctx)
	require.False(t, ok)

	_, err = svc.Login(ctx, 42, "farmer@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, 42, "farmer@example.com", "new-secret")
	require.NoError(t, err)
}

func TestAccountService_Profile(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	acc, err := svc.Signup(ctx, "farmer@example.com", "secret1", "Farmer")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, acc.ID, "", "")
	require.ErrorIs(t, err, ErrNameRequired)

	updated, err := svc.UpdateProfile(ctx, acc.ID, "Grain Grower", " +254 (700) 123-456 ")
	require.NoError(t, err)
	require.Equal(t, "Grain Grower", updated.Name)
	require.Equal(t, "+254 (700) 123-456", updated.Phone)

	got, err := svc.Profile(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "Grain Grower", got.Name)
	require.Equal(t, "+254 (700) 123-456", got.Phone)

	cleared, err := svc.UpdateProfile(ctx, acc.ID, "Grain Grower", "")
	require.NoError(t, err)
	require.Empty(t, cleared.Phone)

	_, err = svc.Profile(ctx, "missing")
	require.ErrorIs(t, err, port.ErrAccountNotFound)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{name: "empty clears", input: "  ", want: ""},
		{name: "international", input: "+7 (912) 345-67-89", want: "+7 (912) 345-67-89"},
		{name: "local digits", input: "0700123456", want: "0700123456"},
		{name: "letters", input: "call me", err: ErrInvalidPhone},
		{name: "plus in the middle", input: "7+9123456789", err: ErrInvalidPhone},
		{name: "too short", input: "12345", err: ErrInvalidPhone},
		{name: "too long", input: "+1234567890123456", err: ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePhone(tt.input)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
