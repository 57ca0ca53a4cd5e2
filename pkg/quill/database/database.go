package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Dialector returns the GORM dialector for a driver name.
// Supported drivers: sqlite (default), postgres, mysql.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Connect initializes the package-level database connection.
// Network databases get a few attempts so the server can start alongside them.
func Connect(driver, dsn string) error {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return err
	}

	attempts := 1
	if driver == "postgres" || driver == "postgresql" || driver == "mysql" {
		attempts = 5
	}

	for i := 0; i < attempts; i++ {
		DB, err = gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err == nil {
			return nil
		}
		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, attempts, err)
		if i < attempts-1 {
			time.Sleep(3 * time.Second)
		}
	}
	return fmt.Errorf("connect to %s: %w", driver, err)
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
