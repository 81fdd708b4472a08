// Package db implements the document store behind the domain collections,
// with GORM (SQLite, PostgreSQL) and Redis backends.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/wastedesk/internal/wastedesk/db/models"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore persists raw JSON documents under fixed keys.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// PutIfAbsent writes data only when key is not stored yet and reports whether it did.
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)
	Close() error
}

// Repository is the GORM-backed DocumentStore.
type Repository struct {
	db *gorm.DB
}

// Config selects and addresses the SQL backend.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newRepository(db)
}

func newRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&models.Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var doc models.Document
	result := r.db.WithContext(ctx).First(&doc, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return []byte(doc.Data), nil
}

func (r *Repository) Put(ctx context.Context, key string, data []byte) error {
	doc := models.Document{Key: key, Data: string(data), Version: 1, UpdatedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       doc.Data,
			"updated_at": doc.UpdatedAt,
			"version":    gorm.Expr("documents.version + 1"),
		}),
	}).Create(&doc)
	return result.Error
}

func (r *Repository) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	doc := models.Document{Key: key, Data: string(data), Version: 1, UpdatedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&doc)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// WithTransaction runs fn against a repository bound to one database transaction.
func (r *Repository) WithTransaction(ctx context.Context, fn func(store DocumentStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
