package bets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

func (r *betsRepo) Insert(ctx context.Context, tx *sql.Tx, b bets.Bet) (int64, error) {
	var id int64

	err := tx.QueryRowContext(ctx, `
		INSERT INTO bets (
			user_id, game_id, category, provider, transaction_id,
			bet_amount, outcome, round_id, session_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
		RETURNING id
	`,
		b.UserID, b.GameID, sql.NullString{String: b.Category, Valid: b.Category != ""}, b.Provider,
		b.TransactionID, b.BetAmount, b.RoundID, b.SessionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bet: %w", err)
	}

	return id, nil
}
