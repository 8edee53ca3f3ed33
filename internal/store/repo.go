package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recentScanLimit bounds how many rows Recent reads while collapsing
// repeated cities.
const recentScanLimit = 500

type Repo struct {
	db *gorm.DB
}

func OpenPostgres(user, password, dbName, host, port, sslMode string) (*gorm.DB, error) {
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

func OpenSQLite(path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		path = "clima.db"
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&Lookup{}); err != nil {
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Record(ctx context.Context, l *Lookup) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.FetchedAt.IsZero() {
		l.FetchedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(l).Error
}

// Recent returns the newest lookup of each distinct city, newest first.
// Lookups without a city name are skipped.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Lookup, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var rows []Lookup
	err := r.db.WithContext(ctx).
		Where("city <> ?", "").
		Order("fetched_at DESC").
		Limit(recentScanLimit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, limit)
	out := make([]Lookup, 0, limit)
	for _, row := range rows {
		k := strings.ToLower(row.City)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// PruneBefore deletes lookups older than cutoff and returns how many were removed.
func (r *Repo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("fetched_at < ?", cutoff).Delete(&Lookup{})
	return res.RowsAffected, res.Error
}
