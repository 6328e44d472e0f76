package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	if DATABASE_TIMEZONE == "" {
		DATABASE_TIMEZONE = "UTC"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

type Config struct {
	Env                      string
	Port                     string
	JWTSecret                string
	QRSecret                 string
	RedisURL                 string
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	MailFrom                 string
	RefundAutoCompleteDays   int
	RefundSweepInterval      time.Duration
	ReservationHold          time.Duration
	ReservationSweepInterval time.Duration
	LogDir                   string
	CORSOrigins              []string
}

// Load reads the process environment. Call godotenv first when running locally.
func Load() *Config {
	return &Config{
		Env:                      getEnv("API_ENV", "local"),
		Port:                     getEnv("PORT", "9090"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		QRSecret:                 getEnv("QR_SECRET", os.Getenv("JWT_SECRET")),
		RedisURL:                 os.Getenv("REDIS_URL"),
		SMTPHost:                 os.Getenv("SMTP_HOST"),
		SMTPPort:                 getInt("SMTP_PORT", 587),
		SMTPUsername:             os.Getenv("SMTP_USERNAME"),
		SMTPPassword:             os.Getenv("SMTP_PASSWORD"),
		MailFrom:                 getEnv("MAIL_FROM", "tickets@localhost"),
		RefundAutoCompleteDays:   getInt("REFUND_AUTO_COMPLETE_DAYS", 5),
		RefundSweepInterval:      getDuration("REFUND_SWEEP_INTERVAL", 6*time.Hour),
		ReservationHold:          getDuration("RESERVATION_HOLD", 15*time.Minute),
		ReservationSweepInterval: getDuration("RESERVATION_SWEEP_INTERVAL", time.Minute),
		LogDir:                   getEnv("LOG_DIR", "logs"),
		CORSOrigins:              getList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d\n", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s\n", key, v, fallback)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
