package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// session token signing
	JWTSecret         string
	SessionTTLDays    int
	VerifyTokenTTLHrs int

	// seeded admin account
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminUsername string
	AdminPhone    string

	// redis (optional, enables the shared rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// object storage for note attachments
	StorageBucket   string
	StorageRegion   string
	StorageEndpoint string

	OTLPEndpoint string

	CORSOrigins []string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func Load() Config {
	// best effort: a missing .env file is fine in prod
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DBURL: buildDBURL(),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionTTLDays:    getEnvInt("SESSION_TTL_DAYS", 30),
		VerifyTokenTTLHrs: getEnvInt("VERIFY_TOKEN_TTL_HOURS", 48),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Campus Admin"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPhone:    getEnv("ADMIN_PHONE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		StorageRegion:   getEnv("STORAGE_REGION", "us-east-1"),
		StorageEndpoint: getEnv("STORAGE_ENDPOINT", ""),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c Config) VerifyTokenTTL() time.Duration {
	return time.Duration(c.VerifyTokenTTLHrs) * time.Hour
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "campus")
	pass := getEnv("DB_PASSWORD", "campus")
	name := getEnv("DB_NAME", "campus")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}

	return out
}
