package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/logging"
)

func initDB() (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	// Mesmos pragmas de performance e resiliência do servidor
	dbConn, err := db.Open(cfg.DatabaseURL, cfg.SQLite)
	if err != nil {
		return nil, nil, err
	}
	return dbConn, cfg, nil
}

func RunSeed() {
	dbConn, _, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	logger := logging.Get()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations during seed", "error", err)
		return
	}
	if err := db.Seed(context.Background(), dbConn); err != nil {
		logger.Error("failed to seed database", "error", err)
		return
	}
	logger.Info("database seeded successfully")
}

func RunMigrate() {
	dbConn, _, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	logger := logging.Get()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return
	}
	logger.Info("migrations executed successfully")
}
