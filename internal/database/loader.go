// internal/database/loader.go
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-analytics-retriever/internal/flatten"
	"github-analytics-retriever/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations to the database at dbURL.
func Migrate(dbURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Loader copies merged tables into PostgreSQL, one database table per
// resource kind.
type Loader struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLoader wraps an open pool.
func NewLoader(pool *pgxpool.Pool, logger *slog.Logger) *Loader {
	return &Loader{pool: pool, logger: logger}
}

// Connect opens a pool for dbURL and checks that the server is reachable.
func Connect(ctx context.Context, dbURL string, logger *slog.Logger) (*Loader, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("Database connection established")
	return NewLoader(pool, logger), nil
}

// Close releases the pool.
func (l *Loader) Close() {
	l.pool.Close()
}

// ReplaceTable truncates the table of kind r and copies every row of the
// merged table into it within one transaction. It returns the number of
// rows copied.
func (l *Loader) ReplaceTable(ctx context.Context, r model.Resource, table *model.Table) (int64, error) {
	if err := checkColumns(r, table); err != nil {
		return 0, err
	}
	name := pgx.Identifier{r.Dir()}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the tx has been committed.

	if _, err := tx.Exec(ctx, "TRUNCATE "+name.Sanitize()); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", r.Dir(), err)
	}
	n, err := tx.CopyFrom(ctx, name, table.Columns, pgx.CopyFromRows(copyRows(table)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", r.Dir(), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.logger.Debug("Replaced table", "table", r.Dir(), "rows", n)
	return n, nil
}

// checkColumns requires the merged header of r: its columns then the
// repository column.
func checkColumns(r model.Resource, table *model.Table) error {
	cols, err := flatten.Columns(r)
	if err != nil {
		return err
	}
	want := append(cols, model.RepositoryColumn)
	if !slices.Equal(table.Columns, want) {
		return fmt.Errorf("table %s has columns %v, want %v", r.Dir(), table.Columns, want)
	}
	return nil
}

// copyRows converts table rows to COPY input. Empty cells become NULL.
func copyRows(table *model.Table) [][]any {
	rows := make([][]any, len(table.Rows))
	for i, row := range table.Rows {
		values := make([]any, len(table.Columns))
		for j := range values {
			if j < len(row) && row[j] != "" {
				values[j] = row[j]
			}
		}
		rows[i] = values
	}
	return rows
}
