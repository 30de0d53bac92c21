package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type Kind string

const (
	// KindLaunch is handed to the player's browser and exchanged by the
	// provider's authenticate call.
	KindLaunch Kind = "launch"
	KindGame   Kind = "game"
)

type Session struct {
	Token     uuid.UUID
	Kind      Kind
	UserID    uint64
	GameID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Sessions interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token uuid.UUID) (Session, error)
}
