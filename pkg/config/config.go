package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	LogLevel        string
	FirebaseProject string
	StorageBucket   string
	NatsURL         string
	JWTSecret       string
	JWTExpiry       int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		NatsURL:         getEnv("NATS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		JWTExpiry:       getEnvAsInt64("JWT_EXPIRY", 24*60*60),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
