// Package session issues launch credentials and exchanges them for the game
// session tokens the provider sends on every callback.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
)

var (
	ErrInvalid      = errors.New("session invalid")
	ErrExpired      = errors.New("session expired")
	ErrGameMismatch = errors.New("session bound to another game")
)

const launchTTL = 15 * time.Minute

type Service struct {
	repo sessions.Sessions
	ttl  time.Duration
	now  func() time.Time
}

func New(repo sessions.Sessions, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// IssueLaunch creates the short-lived credential the game launcher hands to
// the provider.
func (s *Service) IssueLaunch(ctx context.Context, userID uint64, gameID string) (sessions.Session, error) {
	return s.create(ctx, sessions.KindLaunch, userID, gameID, launchTTL)
}

// Authenticate exchanges a launch credential for a game session bound to the
// same user and game. An empty gameID accepts the credential's game.
func (s *Service) Authenticate(ctx context.Context, credential, gameID string) (sessions.Session, error) {
	launch, err := s.lookup(ctx, credential, sessions.KindLaunch)
	if err != nil {
		return sessions.Session{}, err
	}

	if gameID != "" && gameID != launch.GameID {
		return sessions.Session{}, fmt.Errorf("%w: credential for %q, authenticate for %q", ErrGameMismatch, launch.GameID, gameID)
	}

	return s.create(ctx, sessions.KindGame, launch.UserID, launch.GameID, s.ttl)
}

// Resolve returns the live game session behind token.
func (s *Service) Resolve(ctx context.Context, token string) (sessions.Session, error) {
	return s.lookup(ctx, token, sessions.KindGame)
}

func (s *Service) create(ctx context.Context, kind sessions.Kind, userID uint64, gameID string, ttl time.Duration) (sessions.Session, error) {
	sess := sessions.Session{
		Token:     uuid.New(),
		Kind:      kind,
		UserID:    userID,
		GameID:    gameID,
		ExpiresAt: s.now().Add(ttl).UTC(),
	}

	err := s.repo.Create(ctx, sess)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("create %s session: %w", kind, err)
	}

	return sess, nil
}

func (s *Service) lookup(ctx context.Context, raw string, kind sessions.Kind) (sessions.Session, error) {
	token, err := uuid.Parse(raw)
	if err != nil {
		return sessions.Session{}, fmt.Errorf("%w: malformed token", ErrInvalid)
	}

	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return sessions.Session{}, fmt.Errorf("%w: unknown token", ErrInvalid)
		}

		return sessions.Session{}, fmt.Errorf("get session: %w", err)
	}

	if sess.Kind != kind {
		return sessions.Session{}, fmt.Errorf("%w: %s token used as %s", ErrInvalid, sess.Kind, kind)
	}

	if !s.now().Before(sess.ExpiresAt) {
		return sessions.Session{}, fmt.Errorf("%w: at %s", ErrExpired, sess.ExpiresAt.Format(time.RFC3339))
	}

	return sess, nil
}
