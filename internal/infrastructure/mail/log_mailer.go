package mail

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"maize-bot/internal/domain/port"
)

// Message отправленное письмо
type Message struct {
	To      string
	Subject string
	Body    string
}

// LogMailer пишет письма в лог вместо отправки. Последние письма хранятся
// для выдачи в чат и тестов.
type LogMailer struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer создаёт почтовый клиент-заглушку
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mailer")}
}

// Send логирует письмо
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return errors.New("recipient is required")
	}

	m.mu.Lock()
	m.sent = append(m.sent, Message{To: to, Subject: subject, Body: body})
	m.mu.Unlock()

	m.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// Sent возвращает копию отправленных писем
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

var _ port.Mailer = (*LogMailer)(nil)
