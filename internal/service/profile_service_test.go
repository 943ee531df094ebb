package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUsername(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	p, err := e.profiles.SetUsername(ctx, 1, "Spike_Spiegel")
	require.NoError(t, err)
	assert.Equal(t, "Spike_Spiegel", p.DisplayName())

	_, err = e.profiles.SetUsername(ctx, 2, "Spike_Spiegel")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrValidation)

	for _, bad := range []string{"ab", "has space", "dash-name", "waytoolongusername_waytoolongusername"} {
		_, err := e.profiles.SetUsername(ctx, 2, bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}

	_, err = e.profiles.SetUsername(ctx, 99, "ghost_user")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSetAvatar(t *testing.T) {
	e := newTestEnv(t, 1)
	ctx := t.Context()

	p, err := e.profiles.SetAvatar(ctx, 1, "https://cdn.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", p.AvatarURL)

	_, err = e.profiles.SetAvatar(ctx, 1, "javascript:alert(1)")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchAndPresence(t *testing.T) {
	e := newTestEnv(t, 1, 2, 12)
	ctx := t.Context()

	found, err := e.profiles.Search(ctx, "user1", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = e.profiles.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.False(t, e.profiles.IsOnline(ctx, 1))
	require.NoError(t, e.rdb.SetOnline(ctx, 1))
	assert.True(t, e.profiles.IsOnline(ctx, 1))
}
