package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env             string        `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment" validate:"oneof=local dev prod"`
	ApiPort         int           `yaml:"api_port" env:"API_PORT" env-default:"5000" validate:"min=1,max=65535"`
	ApiHost         string        `yaml:"api_host" env:"API_HOST" env-default:"localhost"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s" validate:"gt=0"`
	Auth            `yaml:"auth"`
	Database        `yaml:"database"`
	CORS            `yaml:"cors"`
}

type Auth struct {
	SecretKey    string        `yaml:"secret_key" env:"SECRET_KEY" env-default:"your-secret-key"`
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-default:"your-jwt-secret-key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h" validate:"gt=0"`
}

type Database struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-default:"sqlite:///inventory.db" validate:"required"`
}

type CORS struct {
	Origins []string `yaml:"origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
}

// SigningKey returns the token signing secret. An empty JWT secret falls back
// to the application secret.
func (c *Config) SigningKey() []byte {
	if c.JWTSecretKey != "" {
		return []byte(c.JWTSecretKey)
	}
	return []byte(c.SecretKey)
}

func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

// Load reads configuration from the YAML file at path, or from the
// environment alone when path is empty. A .env file in the working
// directory is applied first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.Database.URL = NormalizeDatabaseURL(cfg.Database.URL)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NormalizeDatabaseURL rewrites the postgres:// scheme some hosting
// providers hand out to postgresql://.
func NormalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
