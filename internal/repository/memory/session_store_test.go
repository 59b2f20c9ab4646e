package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"login-portal/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	require.NoError(t, store.Init(ctx))

	_, ok, err := store.Read(ctx, "tab-1")
	require.NoError(t, err)
	require.False(t, ok)

	rec := domain.NewSessionRecord("admin", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, store.Create(ctx, "tab-1", rec))
	require.NoError(t, store.Create(ctx, "tab-1", rec))
	require.Equal(t, 1, store.(*SessionStore).Len())

	got, ok, err := store.Read(ctx, "tab-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, got)

	require.NoError(t, store.Clear(ctx, "tab-1"))
	require.NoError(t, store.Clear(ctx, "tab-1"))
	_, ok, err = store.Read(ctx, "tab-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionStoreRejectsEmptyID(t *testing.T) {
	store := NewSessionStore()
	err := store.Create(context.Background(), "", domain.NewSessionRecord("admin", time.Now()))
	require.Error(t, err)
}
