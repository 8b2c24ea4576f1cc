package db

import (
	"fmt"

	"gorm.io/gorm"
)

// AdvisoryXactLock takes a Postgres transaction-scoped advisory lock on key.
// The lock is released on commit or rollback. Other dialects have no
// equivalent and are left to in-process locking.
func AdvisoryXactLock(tx *gorm.DB, key string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("advisory lock %q: %w", key, err)
	}
	return nil
}
