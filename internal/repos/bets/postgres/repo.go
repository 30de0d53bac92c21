package bets

import (
	"database/sql"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

var _ bets.Bets = (*betsRepo)(nil)

type betsRepo struct{ db *sql.DB }

func New(db *sql.DB) *betsRepo {
	return &betsRepo{db: db}
}

const selectColumns = `
	id, user_id, game_id, COALESCE(category, ''), provider, transaction_id,
	bet_amount, win_amount, outcome, round_id, session_id, placed_at, result_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(s rowScanner) (bets.Bet, error) {
	var (
		b        bets.Bet
		resultAt sql.NullTime
	)

	err := s.Scan(
		&b.ID, &b.UserID, &b.GameID, &b.Category, &b.Provider, &b.TransactionID,
		&b.BetAmount, &b.WinAmount, &b.Outcome, &b.RoundID, &b.SessionID, &b.PlacedAt, &resultAt,
	)
	if err != nil {
		return bets.Bet{}, err
	}

	if resultAt.Valid {
		b.ResultAt = &resultAt.Time
	}

	return b, nil
}

func collect(rows *sql.Rows) ([]bets.Bet, error) {
	//nolint:errcheck
	defer rows.Close()

	var out []bets.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}
