package database

import (
	"fmt"
	"time"

	"reviewreminder/internal/config"
	"reviewreminder/internal/logger"
	"reviewreminder/internal/models"
	"reviewreminder/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// scanLogFilter keeps the periodic scan, and the reviewer preload it
// triggers, out of the SQL log
var scanLogFilter = utils.GormLogFilter{
	IgnoredQueries: []string{
		`FROM assignment WHERE status =`,
		`FROM reviewer WHERE reviewer.username`,
	},
	SkipFiles: []string{"internal/database/database.go"},
}

// GormConfig returns the gorm configuration shared by every dialect
func GormConfig(log zerolog.Logger) *gorm.Config {
	baseLogger := gormlogger.New(
		logger.GormWriter(log),
		gormlogger.Config{
			SlowThreshold:             time.Second, // Log queries slower than 1 second
			LogLevel:                  gormlogger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return &gorm.Config{
		Logger: utils.NewCustomGormLogger(baseLogger, scanLogFilter),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true, // Use singular table names
		},
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   false,
		DisableForeignKeyConstraintWhenMigrating: false,
	}
}

// Connect opens the postgres connection, retrying while the database comes up
func Connect(cfg config.Database, log zerolog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < cfg.MaxRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), GormConfig(log))
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database connection attempt failed")
		if i < cfg.MaxRetries-1 {
			log.Info().Dur("delay", cfg.RetryDelay).Msg("retrying database connection")
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Msg("database connection established")
	return db, nil
}

// Migrate creates or updates the reminder tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Reviewer{},
		&models.Assignment{},
		&models.ReminderDelivery{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks that the database answers
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
