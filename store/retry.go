package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const maxRetries = 3

// retryDelay is the wait before retry attempt 1, 2, 3.
var retryDelay = func(attempt int) time.Duration {
	return time.Duration(100*attempt) * time.Millisecond
}

// isBusy reports whether err indicates an SQLite BUSY condition.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// runTx executes fn inside a transaction. While SQLite reports BUSY it is
// retried up to 3 more times, after 100, 200 and 300 ms.
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	err := runOnce(ctx, db, fn)
	for attempt := 1; attempt <= maxRetries && isBusy(err); attempt++ {
		t := time.NewTimer(retryDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
		err = runOnce(ctx, db, fn)
	}
	return err
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
