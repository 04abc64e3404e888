package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration, loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port string `env:"PORT" env-default:"4000"`
}

// GitHubConfig represents GitHub API access configuration
type GitHubConfig struct {
	Token string `env:"GITHUB_TOKEN"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD" env-default:"password"`
	Name     string `env:"DB_NAME" env-default:"prtracker"`
	Port     string `env:"DB_PORT" env-default:"5432"`
}

// DSN builds the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if cfg.GitHub.Token == "" {
		return nil, ErrMissingGitHubToken
	}
	return &cfg, nil
}
