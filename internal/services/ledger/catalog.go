package ledger

import (
	"context"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
)

// UpsertGame registers a game, creating its category when it is new.
func (l *Ledger) UpsertGame(ctx context.Context, id, category string, enabled bool) error {
	if id == "" || category == "" {
		return fmt.Errorf("%w: game id and category are required", ErrInvalidRequest)
	}

	err := l.games.Upsert(ctx, games.Game{ID: id, Category: category, Enabled: enabled})
	if err != nil {
		return l.observe(ctx, "upsert_game", err, "game_id", id)
	}

	l.logger.InfoContext(ctx, "game upserted", "game_id", id, "category", category, "enabled", enabled)

	return nil
}

func (l *Ledger) SetGameEnabled(ctx context.Context, id string, enabled bool) error {
	err := l.games.SetGameEnabled(ctx, id, enabled)
	if err != nil {
		return l.observe(ctx, "set_game_enabled", err, "game_id", id)
	}

	l.logger.InfoContext(ctx, "game toggled", "game_id", id, "enabled", enabled)

	return nil
}

func (l *Ledger) SetCategoryEnabled(ctx context.Context, name string, enabled bool) error {
	err := l.games.SetCategoryEnabled(ctx, name, enabled)
	if err != nil {
		return l.observe(ctx, "set_category_enabled", err, "category", name)
	}

	l.logger.InfoContext(ctx, "category toggled", "category", name, "enabled", enabled)

	return nil
}
