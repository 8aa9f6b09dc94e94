package repository

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteStore implements Store on an embedded SQLite file for local development.
type SQLiteStore struct {
	db     *gorm.DB
	logger *logging.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates every table.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Restaurant{},
		&models.Category{},
		&models.MenuItem{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Profile{},
	); err != nil {
		return nil, err
	}

	logger := logging.NewLogger("sqlite-store")
	logger.Info("SQLite database ready", logging.Fields{"path": path})

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	if err := validateQuery(table, q); err != nil {
		return err
	}

	tx := s.scoped(ctx, table, q.Filters)
	if q.OrderBy != "" {
		order := q.OrderBy
		if q.Descending {
			order += " DESC"
		}
		tx = tx.Order(order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	if err := tx.Find(dest).Error; err != nil {
		s.logger.Error("Select failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, table, id string, dest interface{}) error {
	if err := validateTable(table); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(dest).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrNotFound
	}
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, values Values, dest interface{}) error {
	if err := validateValues(table, values); err != nil {
		return err
	}
	row := withID(values)

	if err := s.db.WithContext(ctx).Table(table).Create(map[string]interface{}(row)).Error; err != nil {
		s.logger.Error("Insert failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}

	if dest == nil {
		return nil
	}
	return s.Get(ctx, table, row["id"].(string), dest)
}

func (s *SQLiteStore) Update(ctx context.Context, table, id string, values Values, dest interface{}) error {
	if err := validateValues(table, values); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(map[string]interface{}(values))
	if res.Error != nil {
		s.logger.Error("Update failed", logging.Fields{
			"table": table,
			"id":    id,
			"error": res.Error.Error(),
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	if dest == nil {
		return nil
	}
	return s.Get(ctx, table, id, dest)
}

func (s *SQLiteStore) Delete(ctx context.Context, table string, q Query) error {
	if _, _, err := buildDelete(table, q); err != nil {
		return err
	}

	clauses := make([]string, 0, len(q.Filters))
	args := make([]interface{}, 0, len(q.Filters))
	for _, f := range q.Filters {
		if f.Op == OpIn {
			clauses = append(clauses, f.Column+" IN ?")
		} else {
			clauses = append(clauses, f.Column+" = ?")
		}
		args = append(args, f.Value)
	}

	query := "DELETE FROM " + table + " WHERE " + strings.Join(clauses, " AND ")
	if err := s.db.WithContext(ctx).Exec(query, args...).Error; err != nil {
		s.logger.Error("Delete failed", logging.Fields{
			"table": table,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) scoped(ctx context.Context, table string, filters []Filter) *gorm.DB {
	tx := s.db.WithContext(ctx).Table(table)
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			tx = tx.Where(f.Column+" IN ?", f.Value)
		default:
			tx = tx.Where(f.Column+" = ?", f.Value)
		}
	}
	return tx
}
