package config

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hungerapp/hunger/internal/models"
)

type Config struct {
	PORT            string
	LOG_LEVEL       string
	DB_DRIVER       string
	DB_HOST         string
	DB_PORT         string
	DB_USER         string
	DB_PASSWORD     string
	DB_NAME         string
	SQLITE_PATH     string
	DATA_DIR        string
	SESSION_SECRET  string
	OPENAI_API_KEY  string
	OPENAI_BASE_URL string
	OPENAI_MODEL    string
	ES_URL          string
	ES_USER         string
	ES_PASSWORD     string
	KAFKA_ADDRESS   string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:            getenv("PORT", "8080"),
		LOG_LEVEL:       getenv("LOG_LEVEL", "info"),
		DB_DRIVER:       getenv("DB_DRIVER", "sqlite"),
		DB_HOST:         os.Getenv("DB_HOST"),
		DB_PORT:         os.Getenv("DB_PORT"),
		DB_USER:         os.Getenv("DB_USER"),
		DB_PASSWORD:     os.Getenv("DB_PASSWORD"),
		DB_NAME:         os.Getenv("DB_NAME"),
		SQLITE_PATH:     getenv("SQLITE_PATH", "hunger.db"),
		DATA_DIR:        getenv("DATA_DIR", "data"),
		SESSION_SECRET:  os.Getenv("SESSION_SECRET"),
		OPENAI_API_KEY:  os.Getenv("OPENAI_API_KEY"),
		OPENAI_BASE_URL: os.Getenv("OPENAI_BASE_URL"),
		OPENAI_MODEL:    os.Getenv("OPENAI_MODEL"),
		ES_URL:          os.Getenv("ES_URL"),
		ES_USER:         os.Getenv("ES_USER"),
		ES_PASSWORD:     os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:   os.Getenv("KAFKA_ADDRESS"),
	}

	return config, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// InitDB opens the catalog database. The default is a local sqlite file so
// the storefront runs with zero external services; DB_DRIVER=postgres
// switches to a standard postgres DSN.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB_DRIVER {
	case "postgres":
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
		)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.SQLITE_PATH)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Restaurant{}, &models.MenuItem{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
