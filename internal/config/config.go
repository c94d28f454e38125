package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string   `mapstructure:"DB_DSN"`
	Environment   string   `mapstructure:"ENV"`
	HTTPAddr      string   `mapstructure:"HTTP_ADDR"`
	TelegramToken string   `mapstructure:"TELEGRAM_TOKEN"`
	LogFile       string   `mapstructure:"LOG_FILE"`
	AuditQueue    int      `mapstructure:"AUDIT_QUEUE_SIZE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	AutoMigrate   bool     `mapstructure:"AUTO_MIGRATE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных окружения
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:         getenv("DB_DSN"),
		Environment:   getenv("ENV"),
		HTTPAddr:      getenv("HTTP_ADDR"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		LogFile:       getenv("LOG_FILE"),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS")),
		AutoMigrate:   true,
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.AuditQueue = 256
	if v := getenv("AUDIT_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("AUDIT_QUEUE_SIZE must be a positive integer, got %q", v)
		}
		cfg.AuditQueue = n
	}

	if v := getenv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("AUTO_MIGRATE must be a boolean, got %q", v)
		}
		cfg.AutoMigrate = b
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

// BotEnabled reports whether the Telegram bot should start.
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
