package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres persists records into a single jsonb documents table via GORM.
// Optimistic concurrency is a guarded UPDATE: the WHERE clause pins the
// version read earlier, so zero rows affected means another writer won.
type Postgres struct {
	db *gorm.DB
}

type documentRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:255;column:id"`
	Version    int64     `gorm:"not null"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (documentRow) TableName() string { return "documents" }

var _ Store = (*Postgres)(nil)

// NewPostgres opens the GORM connection (silent logger, bounded pool) and
// migrates the documents table.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string, out any) (int64, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(row.Data, out); err != nil {
		return 0, err
	}
	return row.Version, nil
}

func (s *Postgres) Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	next := expectedVersion + 1
	now := time.Now()

	if expectedVersion == VersionNew {
		err := s.db.WithContext(ctx).Create(&documentRow{
			Collection: collection,
			ID:         id,
			Version:    next,
			Data:       data,
			UpdatedAt:  now,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrVersionConflict
		}
		if err != nil {
			return 0, err
		}
		return next, nil
	}

	res := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ? AND id = ? AND version = ?", collection, id, expectedVersion).
		Updates(map[string]interface{}{
			"version":    next,
			"data":       data,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *Postgres) List(ctx context.Context, collection, prefix string, fn func(id string, raw json.RawMessage) error) error {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id LIKE ?", collection, escapeLike(prefix)+"%").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := fn(row.ID, json.RawMessage(row.Data)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// escapeLike quotes LIKE metacharacters so a prefix is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
