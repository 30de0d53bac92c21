package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
)

var _ sessions.Sessions = (*sessionsRepo)(nil)

type sessionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *sessionsRepo {
	return &sessionsRepo{db: db}
}

func (r *sessionsRepo) Create(ctx context.Context, s sessions.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, kind, user_id, game_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.Token, s.Kind, s.UserID, s.GameID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *sessionsRepo) Get(ctx context.Context, token uuid.UUID) (sessions.Session, error) {
	s := sessions.Session{Token: token}

	err := r.db.QueryRowContext(ctx, `
		SELECT kind, user_id, game_id, expires_at, created_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&s.Kind, &s.UserID, &s.GameID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sessions.Session{}, sessions.ErrSessionNotFound
		}

		return sessions.Session{}, fmt.Errorf("get session: %w", err)
	}

	return s, nil
}
