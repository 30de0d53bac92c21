package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// FinishRound closes a round: pending bets become lost and later bets or
// wins for the round are refused. Finishing twice is a no-op.
func (l *Ledger) FinishRound(ctx context.Context, req RoundRequest) error {
	return l.observe(ctx, "finish_round", l.finishRound(ctx, req), "user_id", req.UserID, "round_id", req.RoundID)
}

func (l *Ledger) finishRound(ctx context.Context, req RoundRequest) error {
	if req.Provider == "" || req.UserID == 0 || req.RoundID == "" {
		return fmt.Errorf("%w: provider, user and round are required", ErrInvalidRequest)
	}

	placed, err := l.bets.ForRound(ctx, l.db, req.Provider, req.UserID, req.RoundID)
	if err != nil {
		return err
	}

	seen := make(map[Scope]bool)
	var scopes []Scope

	add := func(s Scope) {
		if !seen[s] {
			seen[s] = true
			scopes = append(scopes, s)
		}
	}

	for _, b := range placed {
		add(CategoryScope(b.Category))
	}

	// A bet for this round may be about to land in the game's scope.
	if req.GameID != "" {
		g, err := l.games.Get(ctx, l.db, req.GameID)
		if err == nil {
			add(l.scopeForGame(g))
		}
	}

	if len(scopes) == 0 {
		add(MainScope())
	}

	return l.inScopes(ctx, req.UserID, scopes, func(tx *sql.Tx) error {
		finished, err := l.bets.FinishRound(ctx, tx, req.Provider, req.UserID, req.RoundID)
		if err != nil {
			return err
		}

		if finished {
			l.logger.DebugContext(ctx, "round finished", "user_id", req.UserID, "round_id", req.RoundID, "bets", len(placed))
		}

		return nil
	})
}
