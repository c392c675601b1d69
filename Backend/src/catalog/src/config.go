package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	DBPath         string
	SeedOnStart    bool
	RabbitURL      string
	RabbitExchange string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func LoadConfig() Config {
	_ = godotenv.Load()
	return Config{
		HTTPAddr:       getenv("CATALOG_HTTP_ADDR", ":8080"),
		DBPath:         getenv("CATALOG_DB_PATH", "./data/catalog.db"),
		SeedOnStart:    getenv("CATALOG_SEED", "true") == "true",
		RabbitURL:      getenv("RABBITMQ_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "domain_events"),
	}
}

const (
	ShutdownGrace = 10 * time.Second
	SearchCacheSize = 128
)
