package db

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/meinhoongagan/tutor-sessions/models"
)

// Migrate applies the schema. It only runs when explicitly requested.
func Migrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"users", &models.User{}},
		{"contracts", &models.Contract{}},
		{"appointments", &models.Appointment{}},
		{"attendances", &models.Attendance{}},
		{"payments", &models.Payment{}},
		{"reports", &models.Report{}},
	}
	for _, t := range tables {
		log.Infof("migrating %s table...", t.name)
		if err := db.AutoMigrate(t.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", t.name, err)
		}
	}
	log.Info("migrations applied successfully")
	return nil
}
