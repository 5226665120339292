package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doujins-org/recokit/migrations"
	"github.com/doujins-org/recokit/pg"
)

// ApplyPostgres creates schema if needed and applies recokit's Postgres
// migrations to it in one transaction. Every migration is idempotent, so this
// is safe to call on each start.
func ApplyPostgres(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}
	if strings.TrimSpace(schema) == "" {
		return fmt.Errorf("schema is required")
	}
	quotedSchema, err := pg.QuoteSchema(schema)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	files, err := upFiles(migrations.Postgres, "postgres")
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire pg connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+quotedSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	// public stays on the path so the vector type resolves.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path = %s, public", quotedSchema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	for _, f := range files {
		raw, err := fs.ReadFile(migrations.Postgres, "postgres/"+f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := tx.Exec(ctx, string(raw)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// upFiles lists *.up.sql files under dir in apply order.
func upFiles(fsys fs.FS, dir string) ([]string, error) {
	dirEntries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	var files []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasSuffix(name, ".up.sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
