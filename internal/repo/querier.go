package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execNode runs on tx when one is given and on the pool otherwise.
func execNode(db *sql.DB, tx *sql.Tx) Querier {
	if tx == nil {
		return db
	}
	return tx
}

// joinIDs renders ids for `ANY(string_to_array($n, ',')::uuid[])`.
func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
