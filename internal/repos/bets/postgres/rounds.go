package bets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

func (r *betsRepo) OpenForRound(ctx context.Context, q pgutils.Querier, key bets.RoundKey) ([]bets.Bet, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM bets
		WHERE provider = $1 AND user_id = $2 AND round_id = $3
		  AND ($4::text = '' OR session_id = $4)
		  AND outcome IN ('pending', 'win')
		ORDER BY id
	`
	if _, inTx := q.(*sql.Tx); inTx {
		query += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, query, key.Provider, key.UserID, key.RoundID, key.SessionID)
	if err != nil {
		return nil, fmt.Errorf("query open bets: %w", err)
	}

	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("scan open bets: %w", err)
	}

	return out, nil
}

func (r *betsRepo) ForRound(ctx context.Context, q pgutils.Querier, provider string, userID uint64, roundID string) ([]bets.Bet, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM bets
		WHERE provider = $1 AND user_id = $2 AND round_id = $3
		ORDER BY id
	`, provider, userID, roundID)
	if err != nil {
		return nil, fmt.Errorf("query round bets: %w", err)
	}

	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("scan round bets: %w", err)
	}

	return out, nil
}

func (r *betsRepo) LockByTransaction(ctx context.Context, tx *sql.Tx, transactionID int64) (bets.Bet, error) {
	b, err := scanBet(tx.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM bets
		WHERE transaction_id = $1
		FOR UPDATE
	`, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bets.Bet{}, bets.ErrBetNotFound
		}

		return bets.Bet{}, fmt.Errorf("lock bet: %w", err)
	}

	return b, nil
}

func (r *betsRepo) FinishRound(ctx context.Context, tx *sql.Tx, provider string, userID uint64, roundID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO finished_rounds (provider, user_id, round_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, provider, userID, roundID)
	if err != nil {
		return false, fmt.Errorf("insert finished round: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bets
		SET outcome = 'lose', result_at = now()
		WHERE provider = $1 AND user_id = $2 AND round_id = $3 AND outcome = 'pending'
	`, provider, userID, roundID)
	if err != nil {
		return false, fmt.Errorf("settle pending bets: %w", err)
	}

	return true, nil
}

func (r *betsRepo) IsRoundFinished(ctx context.Context, q pgutils.Querier, provider string, userID uint64, roundID string) (bool, error) {
	var finished bool

	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM finished_rounds
			WHERE provider = $1 AND user_id = $2 AND round_id = $3
		)
	`, provider, userID, roundID).Scan(&finished)
	if err != nil {
		return false, fmt.Errorf("check finished round: %w", err)
	}

	return finished, nil
}
