package pgutils

import (
	"context"
	"database/sql"
	"fmt"
)

// TryAdvisoryXactLock attempts a transaction-scoped advisory lock on key
// without waiting. The lock is released when tx commits or rolls back.
func TryAdvisoryXactLock(ctx context.Context, tx *sql.Tx, key string) (bool, error) {
	var acquired bool

	err := tx.QueryRowContext(ctx, `
		SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))
	`, key).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("try advisory lock %q: %w", key, err)
	}

	return acquired, nil
}
