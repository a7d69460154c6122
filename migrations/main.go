package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"bakery/internal/config"
	"bakery/internal/db"

	"go.uber.org/zap"
)

var migrations = []string{
	"001_create_carts.sql",
	"002_create_catalog_snapshots.sql",
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config not loaded", zap.Error(err))
	}

	db, err := db.NewPostgresDB(cfg)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close()

	projectRoot, err := getProjectRoot()
	if err != nil {
		logger.Fatal("project root not found", zap.Error(err))
	}

	successes := 0
	for _, migration := range migrations {
		migrationPath := filepath.Join(projectRoot, "migrations", migration)
		if err := Migrations(db, migrationPath); err != nil {
			logger.Error("migration failed", zap.String("migration", migration), zap.Error(err))
		} else {
			logger.Info("migration applied", zap.String("migration", migration))
			successes++
		}
	}
	logger.Info("migrations done", zap.Int("applied", successes), zap.Int("total", len(migrations)))
}

func Migrations(db *sql.DB, filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}

	_, err = db.Exec(string(content))
	return err
}

func getProjectRoot() (string, error) {
	// Ищем корень проекта по наличию go.mod
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd, nil
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			return "", os.ErrNotExist
		}
		wd = parent
	}
}
