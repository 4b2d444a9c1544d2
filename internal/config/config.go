package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	Port          string
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	BotToken    string
	BotUsername string

	JWTSecret            string
	JWTExpirationSeconds int

	ReferralBonusWatts int64
	ReferralCodeLength int

	InitDataMaxAgeSeconds int

	AuthRateLimit         int
	AuthRateWindowSeconds int
	RateLimitExemptCIDRs  []string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8000"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "wattstap_referral"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotUsername: getEnv("TELEGRAM_BOT_USERNAME", "WattsTapBot"),

		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationSeconds: getEnvInt("JWT_EXPIRATION_SECONDS", 86400),

		ReferralBonusWatts: int64(getEnvInt("REFERRAL_BONUS_WATTS", 5000)),
		ReferralCodeLength: getEnvInt("REFERRAL_CODE_LENGTH", 8),

		InitDataMaxAgeSeconds: getEnvInt("INIT_DATA_MAX_AGE_SECONDS", 86400),

		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 30),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),
		RateLimitExemptCIDRs:  getEnvList("RATE_LIMIT_EXEMPT_CIDRS", []string{"127.0.0.0/8", "::1/128"}),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
