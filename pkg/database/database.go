package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/skulebot/core/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm handle.
type Database struct {
	DB *gorm.DB
}

// New opens the relational store. The driver is picked from the URL scheme:
// postgres URLs go to the postgres driver, anything else is treated as an
// sqlite path (development and tests).
func New(databaseURL string, log *zap.Logger) (*Database, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         zapGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{DB: db}, nil
}

// Migrate runs the schema auto-migration for all models.
func (d *Database) Migrate() error {
	return d.DB.AutoMigrate(
		&models.User{},
		&models.AcademicYear{},
		&models.Semester{},
		&models.Program{},
		&models.ProgramSemester{},
		&models.Department{},
		&models.Course{},
		&models.ProgramSemesterCourse{},
		&models.Enrollment{},
		&models.AccessRequest{},
		&models.UserOptionalCourse{},
		&models.Material{},
		&models.File{},
		&models.Setting{},
		&models.ChatData{},
		&models.UserData{},
		&models.Conversation{},
	)
}

// Seed inserts the global semester catalog (numbers 1..10) if missing.
func (d *Database) Seed() error {
	for number := 1; number <= 10; number++ {
		var n int64
		if err := d.DB.Model(&models.Semester{}).
			Where("number = ?", number).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			if err := d.DB.Create(&models.Semester{Number: number}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// zapGormLogger bridges gorm's logger to zap at warn level so slow queries
// and errors surface in the structured log.
func zapGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		zapWriter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

type zapWriter struct {
	log *zap.Logger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Sugar().Warnf(format, args...)
}
