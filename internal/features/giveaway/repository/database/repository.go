// Package database persists giveaway records through GORM, one JSON
// document per row. SaveAll replaces the table contents inside a
// transaction, preserving the full-overwrite contract.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
)

type giveawayRow struct {
	MessageID string `gorm:"primaryKey;size:64"`
	Data      []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

func (giveawayRow) TableName() string {
	return "giveaways"
}

type dbRepository struct {
	db *gorm.DB
}

// Open connects to the configured database. Supported drivers: sqlite,
// mysql.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func NewDatabaseGiveawayRepository(db *gorm.DB) (repository.GiveawayRepository, error) {
	if err := db.AutoMigrate(&giveawayRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate giveaways table: %w", err)
	}
	return &dbRepository{db: db}, nil
}

func (r *dbRepository) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	var rows []giveawayRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load giveaways: %w", err)
	}

	giveaways := make([]*models.Giveaway, 0, len(rows))
	for _, row := range rows {
		var g models.Giveaway
		if err := json.Unmarshal(row.Data, &g); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", repository.ErrMalformedStore, row.MessageID, err)
		}
		giveaways = append(giveaways, &g)
	}
	return giveaways, nil
}

func (r *dbRepository) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	rows := make([]giveawayRow, 0, len(giveaways))
	for _, g := range giveaways {
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to marshal giveaway %s: %w", g.MessageID, err)
		}
		rows = append(rows, giveawayRow{MessageID: g.MessageID, Data: data, UpdatedAt: time.Now()})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&giveawayRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear giveaways: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert giveaways: %w", err)
		}
		return nil
	})
}
