package games

import (
	"context"
	"errors"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrCategoryNotFound = errors.New("category not found")
)

type Game struct {
	ID       string
	Category string
	Enabled  bool
	// CategoryEnabled mirrors categories.enabled for Category.
	CategoryEnabled bool
}

// Playable reports whether the game and its category both accept traffic.
func (g Game) Playable() bool {
	return g.Enabled && g.CategoryEnabled
}

type Category struct {
	Name    string
	Enabled bool
}

type Games interface {
	Get(ctx context.Context, q pgutils.Querier, id string) (Game, error)
	Category(ctx context.Context, q pgutils.Querier, name string) (Category, error)
	Upsert(ctx context.Context, g Game) error
	SetGameEnabled(ctx context.Context, id string, enabled bool) error
	SetCategoryEnabled(ctx context.Context, name string, enabled bool) error
}
