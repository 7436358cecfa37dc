package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Rewards   RewardsConfig
	Notify    NotifyConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// MongoConfig points at the document store holding search history.
// An empty URI disables search history recording.
type MongoConfig struct {
	URI      string
	Database string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type RewardsConfig struct {
	PointsPerUnit decimal.Decimal
}

type NotifyConfig struct {
	Channel string
}

// IsDevelopment reports whether the server runs outside production
func (c ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

// Addr returns the host:port pair for the Redis server
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 25)
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("MONGO_DATABASE", "kuickmart")
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("REWARDS_POINTS_PER_UNIT", "1")
	viper.SetDefault("NOTIFY_CHANNEL", "kuickmart:notifications")

	pointsPerUnit, err := decimal.NewFromString(viper.GetString("REWARDS_POINTS_PER_UNIT"))
	if err != nil || pointsPerUnit.IsNegative() {
		log.Printf("Warning: invalid REWARDS_POINTS_PER_UNIT %q, using 1", viper.GetString("REWARDS_POINTS_PER_UNIT"))
		pointsPerUnit = decimal.NewFromInt(1)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Database:      viper.GetString("DB_DATABASE"),
			Schema:        viper.GetString("DB_SCHEMA"),
			MaxOpenConns:  viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  viper.GetInt("DB_MAX_IDLE_CONNS"),
			MigrationsDir: viper.GetString("MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("MONGO_URI"),
			Database: viper.GetString("MONGO_DATABASE"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Rewards: RewardsConfig{
			PointsPerUnit: pointsPerUnit,
		},
		Notify: NotifyConfig{
			Channel: viper.GetString("NOTIFY_CHANNEL"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
