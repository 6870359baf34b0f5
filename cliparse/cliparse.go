package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Database types accepted by -t / DATABASE_TYPE
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Secrets
	AdminKey      string
	SessionSecret string
	SessionTTL    time.Duration

	// Token issuance
	CodeLength   int
	IssueRetries int
	MaxBatchSize int
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("tokenvote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Admin API key (prefer env)")
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Voter session signing secret (prefer env)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Voter session lifetime")

	fs.IntVar(&cfg.CodeLength, "code-length", 0, "Digits per generated token code")
	fs.IntVar(&cfg.IssueRetries, "issue-retries", 0, "Code generation attempts per token")
	fs.IntVar(&cfg.MaxBatchSize, "max-batch", 0, "Largest token batch accepted")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	var err error
	if cfg.Port, err = intSetting(cfg.Port, "PORT", 3318); err != nil {
		return Config{}, err
	}
	if err := resolveStore(&cfg); err != nil {
		return Config{}, err
	}

	// Secrets - MUST be provided
	if cfg.AdminKey == "" {
		cfg.AdminKey = os.Getenv("ADMIN_KEY")
	}
	if cfg.AdminKey == "" {
		return Config{}, errors.New("ADMIN_KEY required")
	}

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
		if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
			d, err := time.ParseDuration(ttl)
			if err != nil || d <= 0 {
				return Config{}, errors.New("invalid SESSION_TTL env variable")
			}
			cfg.SessionTTL = d
		}
	}

	if err := resolveIssuance(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ToolConfig resolves the store and issuance settings for offline tools.
// Flag values win over the environment; secrets are not required.
func ToolConfig(databaseURL, databaseType string) (Config, error) {
	cfg := Config{DatabaseURL: databaseURL, DatabaseType: databaseType}
	if err := resolveStore(&cfg); err != nil {
		return Config{}, err
	}
	if err := resolveIssuance(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveStore(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	return nil
}

func resolveIssuance(cfg *Config) error {
	var err error
	if cfg.CodeLength, err = intSetting(cfg.CodeLength, "TOKEN_CODE_LENGTH", 6); err != nil {
		return err
	}
	if cfg.CodeLength < 4 || cfg.CodeLength > 32 {
		return errors.New("token code length must be between 4 and 32")
	}
	if cfg.IssueRetries, err = intSetting(cfg.IssueRetries, "TOKEN_ISSUE_RETRIES", 10); err != nil {
		return err
	}
	if cfg.MaxBatchSize, err = intSetting(cfg.MaxBatchSize, "MAX_BATCH_SIZE", 1000); err != nil {
		return err
	}
	if cfg.IssueRetries < 1 || cfg.MaxBatchSize < 1 {
		return errors.New("issue retries and max batch size must be positive")
	}

	return nil
}

// intSetting keeps a flag value if set, else reads env, else uses def
func intSetting(flagVal int, env string, def int) (int, error) {
	if flagVal != 0 {
		return flagVal, nil
	}
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", env)
	}
	return v, nil
}
