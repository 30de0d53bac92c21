package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]sessions.Session
}

func (m *memRepo) Create(_ context.Context, s sessions.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[s.Token] = s

	return nil
}

func (m *memRepo) Get(_ context.Context, token uuid.UUID) (sessions.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[token]
	if !ok {
		return sessions.Session{}, sessions.ErrSessionNotFound
	}

	return s, nil
}

func newService(now *time.Time) *Service {
	s := New(&memRepo{rows: map[uuid.UUID]sessions.Session{}}, time.Hour)
	s.now = func() time.Time { return *now }

	return s
}

func TestService_LaunchAuthenticateResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newService(&now)
	ctx := t.Context()

	launch, err := s.IssueLaunch(ctx, 7, "aviator")
	require.NoError(t, err)
	assert.Equal(t, sessions.KindLaunch, launch.Kind)

	game, err := s.Authenticate(ctx, launch.Token.String(), "aviator")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), game.UserID)
	assert.Equal(t, "aviator", game.GameID)
	assert.NotEqual(t, launch.Token, game.Token)

	got, err := s.Resolve(ctx, game.Token.String())
	require.NoError(t, err)
	assert.Equal(t, game.Token, got.Token)

	_, err = s.Resolve(ctx, launch.Token.String())
	require.ErrorIs(t, err, ErrInvalid, "launch credentials are not game sessions")

	now = now.Add(time.Hour)
	_, err = s.Resolve(ctx, game.Token.String())
	require.ErrorIs(t, err, ErrExpired)
}

func TestService_AuthenticateFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newService(&now)
	ctx := t.Context()

	launch, err := s.IssueLaunch(ctx, 7, "aviator")
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
		gameID     string
		wantErr    error
	}{
		{name: "malformed", credential: "not-a-uuid", gameID: "aviator", wantErr: ErrInvalid},
		{name: "unknown", credential: uuid.NewString(), gameID: "aviator", wantErr: ErrInvalid},
		{name: "other_game", credential: launch.Token.String(), gameID: "sweet-bonanza", wantErr: ErrGameMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.credential, tt.gameID)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	now = now.Add(launchTTL)
	_, err = s.Authenticate(ctx, launch.Token.String(), "aviator")
	require.ErrorIs(t, err, ErrExpired)
}
