package db

import (
	"fmt"
	"log"
	"ticketing/src/models"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to postgres using the given DSN.
func Open(dsn string) (*gorm.DB, error) {
	return OpenDialector(postgres.Open(dsn))
}

// OpenDialector opens a handle on any gorm dialector with UTC timestamps.
func OpenDialector(d gorm.Dialector) (*gorm.DB, error) {
	_db, err := gorm.Open(d, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		return nil, err
	}
	sqlDB, err := _db.DB()
	if err != nil {
		return nil, fmt.Errorf("establishing connection to database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	return _db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("error migration: %w", err)
	}
	return nil
}
