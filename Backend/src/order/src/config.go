package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	DBPath         string
	CatalogBaseURL string
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
		HTTPAddr:       getenv("ORDER_HTTP_ADDR", ":8081"),
		DBPath:         getenv("ORDER_DB_PATH", "./data/orders.db"),
		CatalogBaseURL: getenv("CATALOG_BASE_URL", "http://localhost:8080"),
		RabbitURL:      getenv("RABBITMQ_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "domain_events"),
	}
}

const ShutdownGrace = 10 * time.Second
