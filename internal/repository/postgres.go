package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logging.Logger
}

// OpenPostgres connects to the database described by cfg and verifies the connection.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	store := NewPostgresStore(db)
	if err := store.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		// Unsafe lets rows carry columns the models do not map.
		db:     sqlx.NewDb(db, "postgres").Unsafe(),
		logger: logging.NewLogger("postgres-store"),
	}
}

func (s *PostgresStore) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	query, args, err := buildSelect(table, q)
	if err != nil {
		return err
	}

	s.logger.Debug("Selecting rows", logging.Fields{"table": table, "query": query})

	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		s.logger.Error("Select failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, table, id string, dest interface{}) error {
	query, args, err := buildSelect(table, Where(Eq("id", id)).Take(1))
	if err != nil {
		return err
	}

	err = s.db.GetContext(ctx, dest, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Get failed", logging.Fields{
			"table": table,
			"id":    id,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, values Values, dest interface{}) error {
	if err := validateValues(table, values); err != nil {
		return err
	}
	query, args := buildInsert(table, withID(values))

	if err := s.execReturning(ctx, query, args, dest); err != nil {
		s.logger.Error("Insert failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}

	s.logger.Debug("Row inserted", logging.Fields{"table": table})
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, table, id string, values Values, dest interface{}) error {
	if err := validateValues(table, values); err != nil {
		return err
	}
	query, args := buildUpdate(table, id, values)

	err := s.execReturning(ctx, query, args, dest)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Update failed", logging.Fields{
			"table": table,
			"id":    id,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, q Query) error {
	query, args, err := buildDelete(table, q)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("Delete failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// execReturning runs a RETURNING statement. Without dest it still requires a
// returned row, so a missing target surfaces as sql.ErrNoRows.
func (s *PostgresStore) execReturning(ctx context.Context, query string, args []interface{}, dest interface{}) error {
	row := s.db.QueryRowxContext(ctx, query, args...)
	if dest != nil {
		return row.StructScan(dest)
	}
	return row.MapScan(map[string]interface{}{})
}

func buildSelect(table string, q Query) (string, []interface{}, error) {
	if err := validateQuery(table, q); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(table)

	where, args := buildWhere(q.Filters, 0)
	b.WriteString(where)

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

func buildDelete(table string, q Query) (string, []interface{}, error) {
	if err := validateQuery(table, q); err != nil {
		return "", nil, err
	}
	if len(q.Filters) == 0 {
		return "", nil, fmt.Errorf("refusing unfiltered delete on %s", table)
	}

	where, args := buildWhere(q.Filters, 0)
	return "DELETE FROM " + table + where, args, nil
}

// buildWhere numbers placeholders after offset existing arguments.
func buildWhere(filters []Filter, offset int) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for i, f := range filters {
		n := offset + i + 1
		switch f.Op {
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", f.Column, n))
			args = append(args, pq.Array(f.Value))
		default:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", f.Column, n))
			args = append(args, pgValue(f.Value))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildInsert(table string, values Values) (string, []interface{}) {
	cols := sortedColumns(values)
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = pgValue(values[col])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return query, args
}

func buildUpdate(table, id string, values Values) (string, []interface{}) {
	cols := sortedColumns(values)
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, pgValue(values[col]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		table, strings.Join(sets, ", "), len(cols)+1)
	return query, args
}

func sortedColumns(values Values) []string {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// pgValue adapts Go slices to Postgres arrays.
func pgValue(v interface{}) interface{} {
	if s, ok := v.([]string); ok {
		return pq.Array(s)
	}
	return v
}
