package db

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meinhoongagan/tutor-sessions/config"
)

// Open establishes the DB connection without running migrations.
func Open(conf *config.Config) (*gorm.DB, error) {
	if conf.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	var dialector gorm.Dialector
	switch conf.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(conf.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(conf.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", conf.DBDriver)
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if conf.Level() <= log.LevelDebug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if conf.DBDriver != "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
	}

	log.Infof("database connection established (%s)", dialector.Name())
	return db, nil
}
