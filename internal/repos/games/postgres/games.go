package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
)

var _ games.Games = (*gamesRepo)(nil)

type gamesRepo struct{ db *sql.DB }

func New(db *sql.DB) *gamesRepo {
	return &gamesRepo{db: db}
}

func (r *gamesRepo) Get(ctx context.Context, q pgutils.Querier, id string) (games.Game, error) {
	g := games.Game{ID: id}

	err := q.QueryRowContext(ctx, `
		SELECT g.category, g.enabled, c.enabled
		FROM games g
		JOIN categories c ON c.name = g.category
		WHERE g.id = $1
	`, id).Scan(&g.Category, &g.Enabled, &g.CategoryEnabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return games.Game{}, games.ErrGameNotFound
		}

		return games.Game{}, fmt.Errorf("get game: %w", err)
	}

	return g, nil
}

func (r *gamesRepo) Category(ctx context.Context, q pgutils.Querier, name string) (games.Category, error) {
	c := games.Category{Name: name}

	err := q.QueryRowContext(ctx, `
		SELECT enabled FROM categories WHERE name = $1
	`, name).Scan(&c.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return games.Category{}, games.ErrCategoryNotFound
		}

		return games.Category{}, fmt.Errorf("get category: %w", err)
	}

	return c, nil
}

// Upsert creates the category on demand, enabled, so a catalog sync can push
// games in any order.
func (r *gamesRepo) Upsert(ctx context.Context, g games.Game) error {
	return pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, g.Category)
		if err != nil {
			return fmt.Errorf("ensure category: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO games (id, category, enabled) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET category = EXCLUDED.category, enabled = EXCLUDED.enabled
		`, g.ID, g.Category, g.Enabled)
		if err != nil {
			return fmt.Errorf("upsert game: %w", err)
		}

		return nil
	})
}

func (r *gamesRepo) SetGameEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE games SET enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("set game enabled: %w", err)
	}

	return oneRow(res, games.ErrGameNotFound)
}

func (r *gamesRepo) SetCategoryEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET enabled = $2 WHERE name = $1`, name, enabled)
	if err != nil {
		return fmt.Errorf("set category enabled: %w", err)
	}

	return oneRow(res, games.ErrCategoryNotFound)
}

func oneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
