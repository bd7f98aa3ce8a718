package entity

// Locale язык интерфейса
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleRussian Locale = "ru"
)

// ParseLocale возвращает поддерживаемый язык или false
func ParseLocale(value string) (Locale, bool) {
	switch Locale(value) {
	case LocaleEnglish, LocaleRussian:
		return Locale(value), true
	}
	return "", false
}

// User представляет пользователя бота
type User struct {
	ID     int64  // Telegram User ID
	ChatID int64  // Telegram Chat ID
	Locale Locale // язык сообщений
}

// NewUser создаёт нового пользователя с языком по умолчанию
func NewUser(userID, chatID int64, locale Locale) *User {
	if locale == "" {
		locale = LocaleEnglish
	}
	return &User{
		ID:     userID,
		ChatID: chatID,
		Locale: locale,
	}
}

// SetLocale меняет язык пользователя
func (u *User) SetLocale(locale Locale) {
	u.Locale = locale
}
