package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every tunable the core and the HTTP edge read at
// startup. Values are sourced from the environment with sane defaults,
// following the same Load()-from-env shape the rest of the codebase uses.
type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	Actor     ActorConfig
	Rates     RatesConfig
	Account   AccountConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Window            time.Duration
}

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// StorageConfig configures the sharded worker pool and its durable backend.
type StorageConfig struct {
	Workers    int
	BaseFolder string
	// Backend selects the pool's persistence layer: "file" (default,
	// folder/key files under BaseFolder) or "postgres".
	Backend       string
	PostgresDSN   string
	AccountFolder string
	ExchangeFolder string
}

// ActorConfig configures the per-account actor lifecycle.
type ActorConfig struct {
	IdleTimeout time.Duration
}

// RatesConfig configures the process-wide exchange-rate table.
type RatesConfig struct {
	RefreshInterval time.Duration
	SeedTable       map[string]float64
	PivotCurrency   string
}

// AccountConfig configures defaults applied to newly created accounts.
type AccountConfig struct {
	DefaultCurrency string
	DefaultLimit    int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 100),
			Window:            time.Minute,
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowMethods:     getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowHeaders:     getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Workers:        getEnvAsInt("STORAGE_WORKERS", 3),
			BaseFolder:     getEnv("STORAGE_BASE_FOLDER", "./data"),
			Backend:        getEnv("STORAGE_BACKEND", "file"),
			PostgresDSN:    getEnv("STORAGE_POSTGRES_DSN", ""),
			AccountFolder:  getEnv("STORAGE_ACCOUNT_FOLDER", "accounts"),
			ExchangeFolder: getEnv("STORAGE_EXCHANGE_FOLDER", "exchange"),
		},
		Actor: ActorConfig{
			IdleTimeout: getEnvAsDuration("ACTOR_IDLE_TIMEOUT", 240*time.Second),
		},
		Rates: RatesConfig{
			RefreshInterval: getEnvAsDuration("RATES_REFRESH_INTERVAL", time.Hour),
			SeedTable:       getEnvAsRateTable("RATES_SEED_TABLE", map[string]float64{"BRL": 5.45, "USD": 1, "EUR": 0.93}),
			PivotCurrency:   getEnv("RATES_PIVOT_CURRENCY", "USD"),
		},
		Account: AccountConfig{
			DefaultCurrency: getEnv("ACCOUNT_DEFAULT_CURRENCY", "BRL"),
			DefaultLimit:    getEnvAsInt("ACCOUNT_DEFAULT_LIMIT", -500),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(name string, defaultVal []string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, ",")
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	return defaultVal
}

// getEnvAsRateTable parses a "CODE:rate,CODE:rate" list into a seed table.
func getEnvAsRateTable(name string, defaultVal map[string]float64) map[string]float64 {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	table := make(map[string]float64)
	for _, pair := range strings.Split(valStr, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		table[strings.ToUpper(strings.TrimSpace(parts[0]))] = rate
	}
	if len(table) == 0 {
		return defaultVal
	}
	return table
}
