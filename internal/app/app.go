// Package app wires configuration, storage, delivery and the reminder
// scheduler together for the commands under cmd/.
package app

import (
	"fmt"

	"reviewreminder/internal/config"
	"reviewreminder/internal/database"
	"reviewreminder/internal/logger"
	"reviewreminder/internal/reminder"
	"reviewreminder/internal/services"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App holds the long-lived collaborators
type App struct {
	Config    config.Config
	Log       zerolog.Logger
	DB        *gorm.DB
	Scheduler *reminder.Scheduler
}

// New loads the config, connects and migrates the database and builds the scheduler
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Scheduler: NewScheduler(cfg, db, log),
	}, nil
}

// NewScheduler builds the scheduler over the gorm store and the SendGrid notifier
func NewScheduler(cfg config.Config, db *gorm.DB, log zerolog.Logger) *reminder.Scheduler {
	return reminder.NewScheduler(
		database.NewAssignmentStore(db),
		services.NewEmailService(cfg.SendGrid, log),
		log,
		reminder.Options{
			Concurrency: cfg.Reminder.Concurrency,
			SendTimeout: cfg.Reminder.SendTimeout,
		},
	)
}

// Ping checks the database connection
func (a *App) Ping() error {
	return database.Ping(a.DB)
}

// Close releases the database connection pool
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
