package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"squad-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Account struct {
	Email    string
	Password string
}

type Config struct {
	Accounts         []Account
	APIBaseURL       string
	DBPath           string
	ServerPort       string
	LogLevel         string
	PollInterval     time.Duration
	DebounceInterval time.Duration
	LikeInterval     time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		APIBaseURL:       getEnv("API_BASE_URL", "https://api-challenge.squadeasy.com"),
		DBPath:           getEnv("DB_PATH", "squadtracker.db"),
		ServerPort:       getEnv("SERVER_PORT", "3231"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PollInterval:     getEnvDuration("POLL_INTERVAL", constants.DefaultPollInterval),
		DebounceInterval: getEnvDuration("DEBOUNCE_INTERVAL", constants.DefaultDebounceInterval),
		LikeInterval:     getEnvDuration("LIKE_INTERVAL", constants.DefaultLikeInterval),
	}

	accounts, err := parseAccounts(os.Getenv("ACCOUNTS"))
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("ACCOUNTS is required (comma-separated email:password pairs)")
	}

	logger.Info().
		Int("accounts", len(cfg.Accounts)).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("poll_interval", cfg.PollInterval).
		Dur("debounce_interval", cfg.DebounceInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// MainAccount is the account whose token backs queries that are not tied to a
// specific account (season ranking, other teams' details, user statistics).
func (c *Config) MainAccount() Account {
	return c.Accounts[0]
}

func parseAccounts(raw string) ([]Account, error) {
	if raw == "" {
		return nil, nil
	}
	var accounts []Account
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, password, ok := strings.Cut(pair, ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid ACCOUNTS entry %q, want email:password", pair)
		}
		accounts = append(accounts, Account{Email: email, Password: password})
	}
	return accounts, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

var Module = fx.Provide(Load)
