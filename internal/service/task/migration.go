package task

import (
	"taskflow/internal/pkg/database"
	"taskflow/internal/pkg/logger"
)

// RunMigrations runs task service migrations
func RunMigrations(db *database.Database, log *logger.Logger) error {
	log.Info("Running task migrations")
	return db.AutoMigrate(&Task{})
}
