package main

import (
	"log"

	"premarket-access-be/internal/config"
	"premarket-access-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		log.Fatal("missing DB_CONNECTION_STRING")
	}

	db, err := database.NewGormDB(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Starting GORM migration (%s)...", cfg.Database.Driver)

	if cfg.Database.Driver == database.DriverPostgres {
		color.Yellow("Step 1: Setting up extensions...")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			color.Yellow("Warn: Failed to create uuid-ossp extension: %v. Continuing...", err)
		}
	}

	color.Yellow("Step 2: Running AutoMigrate for %d tables...", len(database.Models()))
	if err := database.AutoMigrate(db); err != nil {
		color.Red("AutoMigrate failed: %v", err)
		log.Fatal(err)
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}
