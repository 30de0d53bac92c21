package wallets

import (
	"context"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

// Create inserts an empty wallet. Opening balances go through the ledger so
// they are backed by a history row.
func (r *walletsRepo) Create(ctx context.Context, w wallets.Wallet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, main_balance, currency)
		VALUES ($1, 0, $2)
	`, w.UserID, w.Currency)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return wallets.ErrWalletExists
		}

		return fmt.Errorf("create wallet: %w", err)
	}

	return nil
}
