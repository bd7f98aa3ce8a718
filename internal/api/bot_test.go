package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maize-bot/internal/auth"
	"maize-bot/internal/container"
	"maize-bot/internal/domain/entity"
	"maize-bot/internal/infrastructure/mail"
	"maize-bot/internal/infrastructure/storage"
	"maize-bot/internal/infrastructure/vision"
)

const (
	testChatID = int64(100)
	testUserID = int64(10)
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.mu.Lock()
		f.sent = append(f.sent, m)
		f.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) contains(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if strings.Contains(m.Text, s) {
			return true
		}
	}
	return false
}

func buttonsOf(m tgbotapi.MessageConfig) []string {
	markup, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

type testEnv struct {
	bot    *Bot
	sender *fakeSender
	tokens *auth.TokenIssuer
	accts  *storage.MemoryAccountRepository
}

func leafPNG() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("test-secret", "maize-bot")
	require.NoError(t, err)

	accounts := storage.NewMemoryAccountRepository()
	c := container.New(container.Deps{
		Users:      storage.NewMemoryUserRepository(entity.LocaleEnglish),
		Accounts:   accounts,
		Sessions:   storage.NewMemorySessionStore(),
		Mailer:     mail.NewLogMailer(zap.NewNop()),
		Tokens:     tokens,
		History:    storage.NewMemoryHistoryRepository(),
		Detector:   vision.NewStubDetector(zap.NewNop(), vision.WithDelay(0)),
		Decoder:    vision.NewDecoder(1),
		PublicURL:  "http://localhost:8080",
		SessionTTL: time.Hour,
		Logger:     zap.NewNop(),
	})

	fetch := func(_ context.Context, fileID string) ([]byte, error) {
		if fileID == "broken" {
			return []byte("not an image"), nil
		}
		return leafPNG(), nil
	}

	sender := &fakeSender{}
	return &testEnv{
		bot:    newBot(sender, fetch, c, zap.NewNop()),
		sender: sender,
		tokens: tokens,
		accts:  accounts,
	}
}

func (e *testEnv) command(text string) {
	cmd := strings.Fields(text)[0]
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: testUserID},
		Chat:     &tgbotapi.Chat{ID: testChatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}})
}

func (e *testEnv) callback(data string) {
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUserID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}},
		Data:    data,
	}})
}

func (e *testEnv) photo(fileID string) {
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: testUserID},
		Chat:  &tgbotapi.Chat{ID: testChatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}})
}

// acquire проходит предупреждение и разрешение и отправляет фото
func (e *testEnv) acquire(t *testing.T, fileID string) {
	t.Helper()

	e.command("/detect")
	require.Equal(t, []string{cbCamera, cbGallery}, buttonsOf(e.sender.last()))

	e.callback(cbCamera)
	require.Equal(t, []string{cbWarnContinue, cbWarnCancel}, buttonsOf(e.sender.last()))

	e.callback(cbWarnContinue)
	require.Contains(t, e.sender.last().Text, "camera")
	require.Equal(t, []string{cbPermAllow, cbPermDeny}, buttonsOf(e.sender.last()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.callback(cbPermAllow)
	}()

	acq := e.bot.session(testChatID).acquirer
	require.Eventually(t, acq.isWaiting, time.Second, 5*time.Millisecond)
	e.photo(fileID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("allow did not finish")
	}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()

	e.command("/signup farmer@example.com secret1 Maize Farmer")
	require.True(t, e.sender.contains("Account created"))

	acc, err := e.accts.GetByEmail(context.Background(), "farmer@example.com")
	require.NoError(t, err)
	token, err := e.tokens.Issue(acc.ID, auth.PurposeConfirm, "", time.Hour)
	require.NoError(t, err)

	e.command("/confirm " + token)
	require.Contains(t, e.sender.last().Text, "Email confirmed")

	e.command("/login farmer@example.com secret1")
	require.Contains(t, e.sender.last().Text, "Welcome, Maize Farmer")
}

func TestBotGuestFlow(t *testing.T) {
	env := newTestEnv(t)
	env.acquire(t, "leaf")

	last := env.sender.last()
	require.Contains(t, last.Text, "Photo received (8x8)")
	require.Equal(t, []string{cbDetect, cbWarnCancel}, buttonsOf(last))

	env.callback(cbDetect)
	last = env.sender.last()
	require.Contains(t, last.Text, "Confidence:")
	require.Contains(t, last.Text, "guest mode")
	require.Equal(t, []string{cbAnother}, buttonsOf(last))

	env.callback(cbSave)
	require.Contains(t, env.sender.last().Text, "Sign in with /login")
	require.Equal(t, entity.StateResulted, env.bot.session(testChatID).workflow.Snapshot().State)

	env.callback(cbAnother)
	require.Equal(t, []string{cbCamera, cbGallery}, buttonsOf(env.sender.last()))
	require.Equal(t, entity.StateIdle, env.bot.session(testChatID).workflow.Snapshot().State)
}

func TestBotSignedInSaveAndHistory(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.acquire(t, "leaf")

	env.callback(cbDetect)
	require.Equal(t, []string{cbSave, cbAnother}, buttonsOf(env.sender.last()))

	env.callback(cbSave)
	require.Contains(t, env.sender.last().Text, "Saved to history")
	require.Equal(t, entity.StateSaved, env.bot.session(testChatID).workflow.Snapshot().State)

	env.callback(cbSave)
	require.Contains(t, env.sender.last().Text, "not available")

	env.command("/history")
	listing := env.sender.last().Text
	require.Contains(t, listing, "Saved detections")

	idx := strings.Index(listing, "ID: ")
	require.GreaterOrEqual(t, idx, 0)
	recordID := strings.TrimSpace(listing[idx+len("ID: "):])

	env.command("/delete " + recordID)
	require.Contains(t, env.sender.last().Text, "Record deleted")

	env.command("/delete " + recordID)
	require.Contains(t, env.sender.last().Text, "Record not found")

	env.command("/history")
	require.Contains(t, env.sender.last().Text, "history is empty")
}

func TestBotPermissionDenied(t *testing.T) {
	env := newTestEnv(t)

	env.callback(cbGallery)
	env.callback(cbWarnContinue)
	require.Contains(t, env.sender.last().Text, "gallery")

	env.callback(cbPermDeny)
	require.Contains(t, env.sender.last().Text, "Access denied")
	require.Equal(t, entity.StateIdle, env.bot.session(testChatID).workflow.Snapshot().State)

	env.photo("leaf")
	require.Contains(t, env.sender.last().Text, "/detect first")
}

func TestBotWarningCancelled(t *testing.T) {
	env := newTestEnv(t)

	env.callback(cbCamera)
	env.callback(cbWarnCancel)
	require.Contains(t, env.sender.last().Text, "Cancelled")

	env.callback(cbWarnContinue)
	require.Contains(t, env.sender.last().Text, "not available")
}

func TestBotCancelWhileWaitingForPhoto(t *testing.T) {
	env := newTestEnv(t)

	env.callback(cbCamera)
	env.callback(cbWarnContinue)

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.callback(cbPermAllow)
	}()

	acq := env.bot.session(testChatID).acquirer
	require.Eventually(t, acq.isWaiting, time.Second, 5*time.Millisecond)

	env.command("/cancel")
	<-done

	require.Equal(t, entity.StateIdle, env.bot.session(testChatID).workflow.Snapshot().State)
	require.False(t, acq.isWaiting())

	env.photo("leaf")
	require.Contains(t, env.sender.last().Text, "/detect first")
}

func TestBotRejectsBrokenImage(t *testing.T) {
	env := newTestEnv(t)
	env.acquire(t, "broken")

	require.Contains(t, env.sender.last().Text, "Could not read the photo")
	require.Equal(t, entity.StateIdle, env.bot.session(testChatID).workflow.Snapshot().State)
}

func TestBotCameraRejectsDocument(t *testing.T) {
	acq := newChatAcquirer(nil, vision.NewDecoder(1))
	require.Equal(t, deliveryNotWaiting, acq.deliver(incomingFile{FileID: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _, _ = acq.Acquire(ctx, entity.AcquireCamera) }()
	require.Eventually(t, acq.isWaiting, time.Second, 5*time.Millisecond)

	require.Equal(t, deliveryRejected, acq.deliver(incomingFile{FileID: "doc", MimeType: "image/png", Document: true}))
	require.True(t, acq.isWaiting())
}

func TestBotLocale(t *testing.T) {
	env := newTestEnv(t)

	env.command("/lang de")
	require.Contains(t, env.sender.last().Text, "/lang en|ru")

	env.command("/lang ru")
	require.Contains(t, env.sender.last().Text, "Язык: русский")

	env.command("/start")
	require.Contains(t, env.sender.last().Text, "листьях кукурузы")
}

func TestBotAccountCommands(t *testing.T) {
	env := newTestEnv(t)

	env.command("/login farmer@example.com secret1")
	require.Contains(t, env.sender.last().Text, "invalid email or password")

	env.command("/profile")
	require.Contains(t, env.sender.last().Text, "Sign in with /login first")

	env.signIn(t)

	env.command("/profile")
	require.Contains(t, env.sender.last().Text, "📞 not set")

	env.command("/profile Grain Grower")
	require.Contains(t, env.sender.last().Text, "Usage: /profile")

	env.command("/profile name Grain Grower")
	require.Contains(t, env.sender.last().Text, "Profile updated")

	env.command("/profile phone call-me")
	require.Contains(t, env.sender.last().Text, "invalid phone number")

	env.command("/profile phone +254 700 123 456")
	require.Contains(t, env.sender.last().Text, "Profile updated")

	env.command("/profile")
	last := env.sender.last().Text
	require.Contains(t, last, "Grain Grower")
	require.Contains(t, last, "+254 700 123 456")

	env.command("/profile phone -")
	require.Contains(t, env.sender.last().Text, "Profile updated")
	env.command("/profile")
	require.Contains(t, env.sender.last().Text, "📞 not set")

	env.command("/reset farmer@example.com")
	require.Contains(t, env.sender.last().Text, "reset link")

	env.command("/logout")
	require.Contains(t, env.sender.last().Text, "Signed out")

	env.command("/history")
	require.Contains(t, env.sender.last().Text, "Sign in with /login first")

	env.command("/signup")
	require.Contains(t, env.sender.last().Text, "Usage: /signup")
}

func TestBotChangePassword(t *testing.T) {
	env := newTestEnv(t)

	env.command("/password new-secret")
	require.Contains(t, env.sender.last().Text, "Sign in with /login first")

	env.signIn(t)

	env.command("/password")
	require.Contains(t, env.sender.last().Text, "Usage: /password")

	env.command("/password 123")
	require.Contains(t, env.sender.last().Text, "at least")

	env.command("/password new-secret")
	require.Contains(t, env.sender.last().Text, "Password changed")

	// после смены пароля сессия завершена
	env.command("/history")
	require.Contains(t, env.sender.last().Text, "Sign in with /login first")

	env.command("/login farmer@example.com secret1")
	require.Contains(t, env.sender.last().Text, "invalid email or password")
	env.command("/login farmer@example.com new-secret")
	require.Contains(t, env.sender.last().Text, "Welcome, Maize Farmer")
}

func TestFormatResult(t *testing.T) {
	r := &entity.DetectionResult{
		DiseaseName: "Common Rust",
		Description: "pustules",
		Confidence:  88,
		Severity:    entity.SeverityMild,
		Suggestions: []entity.Suggestion{{Name: "Mancozeb", Description: "fungicide", Application: "spray", SafetyNote: "gloves"}},
	}

	out := formatResult(entity.LocaleRussian, r)
	require.Contains(t, out, "Уверенность: 88%")
	require.Contains(t, out, "Лёгкая")
	require.Contains(t, out, "Mancozeb: fungicide")

	healthy := &entity.DetectionResult{DiseaseName: entity.HealthyDiseaseName, Confidence: 95, Severity: entity.SeverityMild}
	require.Contains(t, formatResult(entity.LocaleEnglish, healthy), "looks healthy")
}
