package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Skotchmaster/bookshelf/internal/logging"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"bookshelf"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	ContextPath string `env:"CONTEXT_PATH" envDefault:""`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret  string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"30m"`
	SessionStore   string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisURL       string        `env:"REDIS_URL"`

	TokenValidDays     int           `env:"TOKEN_VALID_DAYS" envDefault:"7"`
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" envDefault:"1h"`

	PasswordMin int `env:"PASSWORD_MIN" envDefault:"6"`
	PasswordMax int `env:"PASSWORD_MAX" envDefault:"100"`
	BcryptCost  int `env:"BCRYPT_COST" envDefault:"10"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	ESIndex    string `env:"ES_INDEX" envDefault:"books"`

	OpenLibraryURL string `env:"OPENLIBRARY_URL" envDefault:"https://openlibrary.org"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`
	CSRFEnabled  bool `env:"CSRF_ENABLED" envDefault:"false"`
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Parse()
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.ContextPath = strings.TrimRight(cfg.ContextPath, "/")
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat)
	}

	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing required env DATABASE_URL")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("missing required env REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	if c.ContextPath != "" && !strings.HasPrefix(c.ContextPath, "/") {
		return fmt.Errorf("CONTEXT_PATH must start with /")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.TokenValidDays <= 0 {
		return fmt.Errorf("TOKEN_VALID_DAYS must be positive")
	}
	if c.PasswordMax != 0 && c.PasswordMax < c.PasswordMin {
		return fmt.Errorf("PASSWORD_MAX must be 0 or >= PASSWORD_MIN")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
