package database

import (
	"fmt"
	"time"

	"relaybridge/state"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Store is the bridge's database handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Connect opens the database configured in cfg.Database.
func Connect(cfg *state.Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Database.URL)
	case "mysql":
		dialector = mysql.Open(cfg.Database.URL)
	case "sqlite3", "sqlite", "":
		dialector = sqlite.Open(cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}

	logLevel := gormLogger.Warn
	if cfg.SilentDbLogs {
		logLevel = gormLogger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			zap.NewStdLog(logger.Named("gorm")),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logLevel,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Type, err)
	}
	return db, nil
}
