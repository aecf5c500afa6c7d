package testutil

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"storefront/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartPostgres runs a throwaway Postgres container with the embedded
// migrations applied. Skipped under -short.
func StartPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront_test"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(connStr, Logger()))

	db, err := database.NewPostgres(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// Logger discards everything.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
