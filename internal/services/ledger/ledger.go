// Package ledger is the only code path that changes balances. Every mutation
// runs in one database transaction that holds the advisory lock of each
// (user, scope) it touches, writes the balance and appends the history row
// carrying the before/after values it computed.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user01samiul/jx-backend-sub008/internal/config"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	pgbets "github.com/user01samiul/jx-backend-sub008/internal/repos/bets/postgres"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
	pggames "github.com/user01samiul/jx-backend-sub008/internal/repos/games/postgres"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	pgtransactions "github.com/user01samiul/jx-backend-sub008/internal/repos/transactions/postgres"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
	pgwallets "github.com/user01samiul/jx-backend-sub008/internal/repos/wallets/postgres"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

type Ledger struct {
	db      *sql.DB
	wallets wallets.Wallets
	txns    transactions.Transactions
	bets    bets.Bets
	games   games.Games
	guard   *idempotency.Guard
	locker  *Locker
	mode    WalletMode
	logger  *slog.Logger
}

type Option func(*ledgerOptions)

type ledgerOptions struct {
	logger   *slog.Logger
	observer LockObserver
}

func WithLogger(l *slog.Logger) Option {
	return func(o *ledgerOptions) { o.logger = l }
}

// WithLockObserver reports lock retries and busy failures, typically to metrics.
func WithLockObserver(obs LockObserver) Option {
	return func(o *ledgerOptions) { o.observer = obs }
}

func New(db *sql.DB, cfg config.LedgerConfig, opts ...Option) *Ledger {
	o := ledgerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	txns := pgtransactions.New(db)

	mode := ModeCategory
	if WalletMode(cfg.WalletMode) == ModeMain {
		mode = ModeMain
	}

	return &Ledger{
		db:      db,
		wallets: pgwallets.New(db),
		txns:    txns,
		bets:    pgbets.New(db),
		games:   pggames.New(db),
		guard:   idempotency.New(txns),
		locker:  NewLocker(cfg, o.observer),
		mode:    mode,
		logger:  o.logger.With("component", "ledger"),
	}
}

func (l *Ledger) Mode() WalletMode { return l.mode }

// inScopes runs fn in one transaction holding the locks of every scope.
func (l *Ledger) inScopes(ctx context.Context, userID uint64, scopes []Scope, fn func(tx *sql.Tx) error) error {
	keys := make([]string, 0, len(scopes))
	for _, s := range scopes {
		keys = append(keys, s.Key(userID))
	}

	return pgutils.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		err := l.locker.Acquire(ctx, tx, keys...)
		if err != nil {
			return err
		}

		return fn(tx)
	})
}

// once runs apply unless (provider, reference) was already applied, in which
// case the stored result is replayed. A duplicate raised by the unique index
// means a concurrent request won the race; its result is replayed too.
func (l *Ledger) once(
	ctx context.Context,
	provider, reference string,
	fp idempotency.Fingerprint,
	apply func() (Result, error),
) (Result, error) {
	stored, found, err := l.guard.Check(ctx, l.db, provider, reference, fp)
	if err != nil {
		return Result{}, err
	}
	if found {
		return l.replay(ctx, stored)
	}

	res, err := apply()
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		return res, err
	}

	stored, found, err = l.guard.Check(ctx, l.db, provider, reference, fp)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("duplicate %s/%s vanished on replay", provider, reference)
	}

	return l.replay(ctx, stored)
}

// replay still refuses games that were disabled since the original call. The
// game comes from the stored row, the retry does not have to name it.
func (l *Ledger) replay(ctx context.Context, stored transactions.Transaction) (Result, error) {
	if stored.Metadata.GameID != "" {
		_, err := l.playableGame(ctx, l.db, stored.Metadata.GameID)
		if err != nil {
			return Result{}, err
		}
	}

	return resultOf(stored, true), nil
}

func (l *Ledger) playableGame(ctx context.Context, q pgutils.Querier, gameID string) (games.Game, error) {
	g, err := l.games.Get(ctx, q, gameID)
	if err != nil {
		return games.Game{}, fmt.Errorf("game %q: %w", gameID, err)
	}

	if !g.Playable() {
		return games.Game{}, fmt.Errorf("%w: game %q (category %q)", ErrGameDisabled, g.ID, g.Category)
	}

	return g, nil
}

func (l *Ledger) scopeForGame(g games.Game) Scope {
	if l.mode == ModeMain {
		return MainScope()
	}

	return CategoryScope(g.Category)
}

// observe logs err at a level that matches its class and returns it unchanged.
func (l *Ledger) observe(ctx context.Context, op string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}

	attrs = append(attrs, "op", op, "error", err)

	switch Classify(err) {
	case ClassValidation, ClassBusiness:
		l.logger.DebugContext(ctx, "ledger operation rejected", attrs...)
	case ClassContention:
		l.logger.WarnContext(ctx, "ledger scope contended", attrs...)
	default:
		l.logger.ErrorContext(ctx, "ledger operation failed", attrs...)
	}

	return err
}
