package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultLocale(t *testing.T) {
	u := NewUser(1, 10, "")
	require.Equal(t, LocaleEnglish, u.Locale)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
}

func TestParseLocale(t *testing.T) {
	l, ok := ParseLocale("ru")
	require.True(t, ok)
	require.Equal(t, LocaleRussian, l)

	_, ok = ParseLocale("de")
	require.False(t, ok)
}
