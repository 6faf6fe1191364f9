package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Books    BooksConfig
	Redis    RedisConfig
	OpenAI   OpenAIConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

// BooksConfig holds settings that change how figures are computed.
type BooksConfig struct {
	// Location defines month boundaries for reporting windows.
	Location *time.Location
	// SellerState decides between CGST/SGST and IGST on sales.
	SellerState string
	// ExpenseAccounts maps expense categories to ledger account names.
	ExpenseAccounts map[string]string
}

type RedisConfig struct {
	// Address is empty when the submission guard is disabled.
	Address string
	LockTTL time.Duration
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.BindEnv("SERVER_PORT", "SERVER_PORT", "PORT")

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REPORT_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SUBMISSION_LOCK_TTL", "30s")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	return v
}

// Load reads .env (if present) and the process environment. Variables set in
// the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("REPORT_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", v.GetString("REPORT_TIMEZONE"), err)
	}

	ttl, err := time.ParseDuration(v.GetString("SUBMISSION_LOCK_TTL"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid SUBMISSION_LOCK_TTL %q", v.GetString("SUBMISSION_LOCK_TTL"))
	}

	format := strings.ToLower(v.GetString("LOG_FORMAT"))
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", format)
	}

	level := strings.ToLower(v.GetString("LOG_LEVEL"))
	if _, err := logrus.ParseLevel(level); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	accounts, err := parseAccountMap(v.GetString("EXPENSE_ACCOUNTS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AllowedOrigins: v.GetString("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{URL: v.GetString("DATABASE_URL")},
		Log: LogConfig{
			Level:  level,
			Format: format,
		},
		Books: BooksConfig{
			Location:        loc,
			SellerState:     v.GetString("SELLER_STATE"),
			ExpenseAccounts: accounts,
		},
		Redis: RedisConfig{
			Address: v.GetString("REDIS_ADDRESS"),
			LockTTL: ttl,
		},
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("OPENAI_API_KEY"),
			Model:  v.GetString("OPENAI_MODEL"),
		},
	}, nil
}

// RequireDatabase reports a config error when DATABASE_URL is missing.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// parseAccountMap reads "Category=Account;Other=Account".
func parseAccountMap(raw string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		cat, acct, ok := strings.Cut(pair, "=")
		cat, acct = strings.TrimSpace(cat), strings.TrimSpace(acct)
		if !ok || cat == "" || acct == "" {
			return nil, fmt.Errorf("invalid EXPENSE_ACCOUNTS entry %q: want Category=Account", pair)
		}
		out[cat] = acct
	}
	return out, nil
}
