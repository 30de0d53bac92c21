package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

// Balance reads the main balance and, when category is set, that category's
// balance. Reads take no locks.
func (l *Ledger) Balance(ctx context.Context, userID uint64, category string) (Snapshot, error) {
	snap, err := l.snapshot(ctx, l.db, userID, category)
	if err != nil {
		return Snapshot{}, fmt.Errorf("balance: %w", err)
	}

	return snap, nil
}

// GameBalance reads the balance a game settles against in the current
// wallet mode. Disabled games can still be read.
func (l *Ledger) GameBalance(ctx context.Context, userID uint64, gameID string) (Snapshot, error) {
	g, err := l.games.Get(ctx, l.db, gameID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("game %q: %w", gameID, err)
	}

	return l.Balance(ctx, userID, l.scopeForGame(g).Category)
}

func (l *Ledger) Wallet(ctx context.Context, userID uint64) (WalletView, error) {
	w, err := l.wallets.Get(ctx, l.db, userID)
	if err != nil {
		return WalletView{}, fmt.Errorf("wallet: %w", err)
	}

	cats, err := l.wallets.ListCategories(ctx, l.db, userID)
	if err != nil {
		return WalletView{}, fmt.Errorf("wallet categories: %w", err)
	}

	view := WalletView{
		Snapshot:   Snapshot{UserID: userID, Currency: w.Currency, Main: w.MainBalance},
		Categories: make(map[string]decimal.Decimal, len(cats)),
		CreatedAt:  w.CreatedAt,
	}
	for _, c := range cats {
		view.Categories[c.Category] = c.Balance
	}

	return view, nil
}

// Status returns the recorded transaction for a provider reference.
func (l *Ledger) Status(ctx context.Context, provider, reference string) (transactions.Transaction, error) {
	t, err := l.txns.GetByReference(ctx, l.db, provider, reference)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("status: %w", err)
	}

	return t, nil
}

func (l *Ledger) Transaction(ctx context.Context, id int64) (transactions.Transaction, error) {
	t, err := l.txns.GetByID(ctx, l.db, id)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("transaction: %w", err)
	}

	return t, nil
}

func (l *Ledger) ListTransactions(ctx context.Context, f transactions.Filter) ([]transactions.Transaction, error) {
	out, err := l.txns.List(ctx, l.db, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return out, nil
}

func (l *Ledger) ListBets(ctx context.Context, f bets.Filter) ([]bets.Bet, error) {
	out, err := l.bets.List(ctx, l.db, f)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}

	return out, nil
}

// CreateWallet opens a wallet and books the opening balance, if any, as a
// deposit so the balance is backed by history.
func (l *Ledger) CreateWallet(ctx context.Context, userID uint64, currency string, opening decimal.Decimal, by string) (Snapshot, error) {
	if userID == 0 || len(currency) != 3 {
		return Snapshot{}, l.observe(ctx, "create_wallet",
			fmt.Errorf("%w: user and a 3-letter currency are required", ErrInvalidRequest), "user_id", userID)
	}
	if opening.IsNegative() {
		return Snapshot{}, l.observe(ctx, "create_wallet",
			fmt.Errorf("%w: opening balance %s", ErrInvalidAmount, opening), "user_id", userID)
	}

	err := l.wallets.Create(ctx, wallets.Wallet{UserID: userID, Currency: currency})
	if err != nil {
		return Snapshot{}, l.observe(ctx, "create_wallet", err, "user_id", userID)
	}

	if opening.IsPositive() {
		_, err = l.Apply(ctx, EntryRequest{
			UserID:      userID,
			Type:        transactions.TypeDeposit,
			Amount:      opening,
			Description: "opening balance",
			By:          by,
		})
		if err != nil {
			return Snapshot{}, err
		}
	}

	return l.Balance(ctx, userID, "")
}
