package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// InvoiceRepository is the relational side of the sink. The table is created
// lazily before the first insert through a given handle.
type InvoiceRepository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, inv entity.Invoice) error
	List(ctx context.Context) ([]entity.Invoice, error)
}

// schemaOnce runs the CREATE TABLE until it succeeds once. Unlike sync.Once a
// failure is retried on the next call.
type schemaOnce struct {
	mu   sync.Mutex
	done bool
}

func (s *schemaOnce) do(f func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	if err := f(); err != nil {
		return err
	}
	s.done = true
	return nil
}

// SQLInvoices stores invoices through database/sql (SQLite).
type SQLInvoices struct {
	db      *sql.DB
	dialect string
	schema  schemaOnce
	logger  *slog.Logger
}

func NewSQLInvoices(db *sql.DB, d string, logger *slog.Logger) *SQLInvoices {
	if logger == nil {
		logger = slog.Default()
	}
	if d == "" {
		d = dialect.SQLite
	}
	return &SQLInvoices{db: db, dialect: d, logger: logger}
}

func (r *SQLInvoices) EnsureSchema(ctx context.Context) error {
	return r.schema.do(func() error {
		if _, err := r.db.ExecContext(ctx, createTableQuery(r.dialect)); err != nil {
			return fmt.Errorf("%w: create %s table: %v", common.ErrDatabase, TableInvoices, err)
		}
		r.logger.Debug("repository.schema.ready", "table", TableInvoices)
		return nil
	})
}

func (r *SQLInvoices) Insert(ctx context.Context, inv entity.Invoice) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}
	query, args := insertQuery(r.dialect, inv)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert invoice: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *SQLInvoices) List(ctx context.Context) ([]entity.Invoice, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	query, args := selectQuery(r.dialect)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list invoices: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan invoice: %v", common.ErrDatabase, err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// PgxPool is the subset of *pgxpool.Pool the Postgres repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresInvoices stores invoices through a pgx pool.
type PostgresInvoices struct {
	pool   PgxPool
	schema schemaOnce
	logger *slog.Logger
}

func NewPostgresInvoices(pool PgxPool, logger *slog.Logger) *PostgresInvoices {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInvoices{pool: pool, logger: logger}
}

func (r *PostgresInvoices) EnsureSchema(ctx context.Context) error {
	return r.schema.do(func() error {
		if _, err := r.pool.Exec(ctx, createTableQuery(dialect.Postgres)); err != nil {
			return fmt.Errorf("%w: create %s table: %v", common.ErrDatabase, TableInvoices, err)
		}
		r.logger.Debug("repository.schema.ready", "table", TableInvoices)
		return nil
	})
}

func (r *PostgresInvoices) Insert(ctx context.Context, inv entity.Invoice) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}
	query, args := insertQuery(dialect.Postgres, inv)
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert invoice: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *PostgresInvoices) List(ctx context.Context) ([]entity.Invoice, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	query, args := selectQuery(dialect.Postgres)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list invoices: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan invoice: %v", common.ErrDatabase, err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
