package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	BotToken string

	Storage   string
	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	DBSSLMode string

	HTTPPort       string
	WebAppURL      string
	SessionSecret  string
	SessionTTL     time.Duration
	OrdersChatID   int64
	CollapseWindow time.Duration

	AdminToken   string  // Bearer-токен для POST /api/cache/clear
	AdminChatIDs []int64 // чаты, которым доступен /clear_cache для всех

	GoogleClientEmail string
	GooglePrivateKey  string
	GoogleProjectID   string
	SpreadsheetID     string
	SheetRange        string
	AddonPrice        int
}

// Load reads .env from the project root, if present, and then the environment.
func Load() (*Config, error) {
	_, filename, _, _ := runtime.Caller(0) // корневая папка проекта
	rootDir := filepath.Join(filepath.Dir(filename), "..", "..")

	envPath := filepath.Join(rootDir, ".env") // загрузка .env из корневой папки
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),

		Storage:   getEnvOrDefault("STORAGE", StoragePostgres),
		DBHost:    getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:    getEnvOrDefault("DB_PORT", "5432"),
		DBUser:    os.Getenv("DB_USER"),
		DBPass:    os.Getenv("DB_PASSWORD"),
		DBName:    getEnvOrDefault("DB_NAME", "bakery"),
		DBSSLMode: getEnvOrDefault("DB_SSLMODE", "disable"),

		HTTPPort:      getEnvOrDefault("HTTP_PORT", "8080"),
		WebAppURL:     os.Getenv("WEBAPP_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),

		GoogleClientEmail: os.Getenv("GOOGLE_CLIENT_EMAIL"),
		GooglePrivateKey:  os.Getenv("GOOGLE_PRIVATE_KEY"),
		GoogleProjectID:   os.Getenv("GOOGLE_PROJECT_ID"),
		SpreadsheetID:     os.Getenv("SPREADSHEET_ID"),
		SheetRange:        getEnvOrDefault("SHEET_RANGE", "A:H"),
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CollapseWindow, err = durationEnv("COLLAPSE_WINDOW", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.AddonPrice, err = intEnv("ADDON_PRICE", 50); err != nil {
		return nil, err
	}
	if v := os.Getenv("ORDERS_CHAT_ID"); v != "" {
		if cfg.OrdersChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("ORDERS_CHAT_ID: %w", err)
		}
	}
	if cfg.AdminChatIDs, err = int64ListEnv("ADMIN_CHAT_IDS"); err != nil {
		return nil, err
	}
	if len(cfg.AdminChatIDs) == 0 && cfg.OrdersChatID != 0 {
		cfg.AdminChatIDs = []int64{cfg.OrdersChatID}
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.WebAppURL != "" && cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required when WEBAPP_URL is set")
	}
	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// int64ListEnv parses a comma-separated list of chat ids.
func int64ListEnv(key string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, id)
	}
	return out, nil
}
