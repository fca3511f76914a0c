// Package config loads service settings from the environment, after an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
	BackendMySQL     = "mysql"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	AppID    string `env:"APP_ID" envDefault:"default-app-id"`
	Locale   string `env:"LOCALE" envDefault:"pt-BR"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend      string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI          string `env:"MONGODB_URI"`
	MongoName         string `env:"MONGODB_NAME" envDefault:"timebank"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	AccountsBackend string `env:"ACCOUNTS_BACKEND" envDefault:"mysql"`
	DBHost          string `env:"DB_HOST" envDefault:"localhost"`
	DBPort          string `env:"DB_PORT" envDefault:"3306"`
	DBUser          string `env:"DB_USER"`
	DBPass          string `env:"DB_PASS"`
	DBName          string `env:"DB_NAME"`

	SessionSecret     string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookie      bool          `env:"SECURE_COOKIE" envDefault:"false"`
	CustomTokenSecret string        `env:"CUSTOM_TOKEN_SECRET"`
	InitialAuthToken  string        `env:"INITIAL_AUTH_TOKEN"`
	AllowAnonymous    bool          `env:"ALLOW_ANONYMOUS" envDefault:"true"`

	Mail     Mail          `envPrefix:"MAIL_"`
	MaxShift time.Duration `env:"MAX_SHIFT" envDefault:"12h"`
}

type Mail struct {
	Host    string `env:"HOST"`
	Port    int    `env:"PORT" envDefault:"587"`
	User    string `env:"USER"`
	Pass    string `env:"PASS"`
	Subject string `env:"SUBJECT" envDefault:"Open time entry"`
}

// Load reads .env when present, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("You must set your 'MONGODB_URI' environmental variable")
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.AccountsBackend {
	case BackendMySQL:
		if c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_USER and DB_NAME are required for the mysql accounts backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ACCOUNTS_BACKEND %q", c.AccountsBackend)
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
