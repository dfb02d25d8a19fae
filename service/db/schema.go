package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// createTableStatements are the idempotent table definitions. Timestamp
// columns are text on purpose: callers supply them and this layer never
// interprets them.
var createTableStatements = []struct {
	table string
	sql   string
}{
	{
		table: "contracts",
		sql: `CREATE TABLE IF NOT EXISTS contracts (
			address TEXT NOT NULL,
			token TEXT NOT NULL,
			wallets TEXT NOT NULL,
			owner TEXT NOT NULL
		)`,
	},
	{
		table: "transactions",
		sql: `CREATE TABLE IF NOT EXISTS transactions (
			contract_address TEXT NOT NULL,
			type TEXT NOT NULL,
			details TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
	},
	{
		table: "rescues",
		sql: `CREATE TABLE IF NOT EXISTS rescues (
			owner TEXT NOT NULL,
			type TEXT NOT NULL,
			contract_address TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			token_ids TEXT,
			timestamp TEXT NOT NULL
		)`,
	},
}

// requiredIndexes are the secondary indexes that must exist before the
// service is considered healthy. Presence is checked against pg_indexes at
// every startup; the existence check, not error suppression, makes the
// creation idempotent.
var requiredIndexes = []struct {
	table string
	name  string
	sql   string
}{
	{
		table: "contracts",
		name:  "idx_contracts_owner",
		sql:   `CREATE INDEX idx_contracts_owner ON contracts (owner)`,
	},
	{
		table: "transactions",
		name:  "idx_transactions_contract_address",
		sql:   `CREATE INDEX idx_transactions_contract_address ON transactions (contract_address)`,
	},
}

// EnsureSchema provisions the persisted schema: it verifies connectivity,
// creates the three tables if absent, and checks each required index against
// the catalog, creating it only when missing. Safe to run on every process
// start. Any error is fatal to the caller: the listener must not bind with
// an unverified schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range createTableStatements {
		if _, err := pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to ensure table %s: %w", stmt.table, err)
		}
		logger.Debug("table ensured", "table", stmt.table)
	}

	for _, idx := range requiredIndexes {
		exists, err := indexExists(ctx, pool, idx.table, idx.name)
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if exists {
			logger.Info("index already present", "table", idx.table, "index", idx.name)
			continue
		}

		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		logger.Info("index created", "table", idx.table, "index", idx.name)
	}

	return nil
}

// indexExists queries the catalog for a named index on a table.
func indexExists(ctx context.Context, pool *pgxpool.Pool, table, name string) (bool, error) {
	var count int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pg_indexes WHERE tablename = $1 AND indexname = $2`,
		table, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
