package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"maize-bot/internal/domain/entity"
)

func TestPermissionGate_AllowAfterWarning(t *testing.T) {
	g := NewPermissionGate()

	_, err := g.Allow()
	require.ErrorIs(t, err, entity.ErrInvalidTransition)

	g.Open(entity.AcquireGallery)
	require.True(t, g.WarningShown())

	_, err = g.Allow()
	require.ErrorIs(t, err, entity.ErrInvalidTransition)

	kind, err := g.Continue()
	require.NoError(t, err)
	require.Equal(t, entity.AcquireGallery, kind)
	require.True(t, g.PermissionShown())

	kind, err = g.Allow()
	require.NoError(t, err)
	require.Equal(t, entity.AcquireGallery, kind)
	require.False(t, g.WarningShown())
	require.False(t, g.PermissionShown())
}

func TestPermissionGate_DenyAndReopen(t *testing.T) {
	g := NewPermissionGate()
	g.Open(entity.AcquireCamera)
	_, err := g.Continue()
	require.NoError(t, err)

	require.ErrorIs(t, g.Deny(), ErrPermissionDenied)
	require.ErrorIs(t, g.Deny(), entity.ErrInvalidTransition)

	// отказ не запоминается: новый запрос снова начинается с предупреждения
	g.Open(entity.AcquireCamera)
	require.True(t, g.WarningShown())
	require.False(t, g.PermissionShown())
}

func TestPermissionGate_CancelAtWarning(t *testing.T) {
	g := NewPermissionGate()
	g.Open(entity.AcquireCamera)
	g.Cancel()

	require.False(t, g.WarningShown())
	_, err := g.Continue()
	require.ErrorIs(t, err, entity.ErrInvalidTransition)
}
