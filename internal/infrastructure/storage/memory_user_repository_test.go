package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

func TestMemoryUserRepository_GetCreatesOnce(t *testing.T) {
	repo := NewMemoryUserRepository(entity.LocaleRussian)
	ctx := context.Background()

	first, err := repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, int64(70), first.ChatID)
	require.Equal(t, entity.LocaleRussian, first.Locale)

	// изменения копии не попадают в хранилище
	first.SetLocale(entity.LocaleEnglish)
	again, err := repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.LocaleRussian, again.Locale)
}

func TestMemoryUserRepository_UpdateLocale(t *testing.T) {
	repo := NewMemoryUserRepository(entity.LocaleEnglish)
	ctx := context.Background()

	require.ErrorIs(t, repo.UpdateLocale(ctx, 1, entity.LocaleRussian), port.ErrUserNotFound)

	_, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLocale(ctx, 1, entity.LocaleRussian))

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.LocaleRussian, user.Locale)
}
