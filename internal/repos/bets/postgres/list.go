package bets

import (
	"context"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

func (r *betsRepo) List(ctx context.Context, q pgutils.Querier, f bets.Filter) ([]bets.Bet, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM bets
		WHERE ($1::bigint = 0 OR user_id = $1)
		  AND ($2::text = '' OR game_id = $2)
		  AND ($3::text = '' OR outcome = $3)
		  AND ($4::bigint = 0 OR id < $4)
		ORDER BY id DESC
		LIMIT $5
	`, int64(f.UserID), f.GameID, string(f.Outcome), f.BeforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}

	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("scan bets: %w", err)
	}

	return out, nil
}
