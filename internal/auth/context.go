package auth

import "context"

type contextKey string

const chatUserKey contextKey = "chatUserID"

// WithChatUser кладёт Telegram ID пользователя в контекст.
func WithChatUser(ctx context.Context, chatUserID int64) context.Context {
	return context.WithValue(ctx, chatUserKey, chatUserID)
}

// ChatUser достаёт Telegram ID пользователя из контекста.
func ChatUser(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	if value, ok := ctx.Value(chatUserKey).(int64); ok && value != 0 {
		return value, true
	}
	return 0, false
}
