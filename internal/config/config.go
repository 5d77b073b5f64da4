// Package config provides configuration management for the IFPass API.
// It handles loading configuration from YAML files, applying environment
// variable and command line flag overrides, and validating configuration
// values for server, database, JWT, application secret, logging, and
// security settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// AppConfig holds the application secret used to sign certificate
// verification tokens. The secret is loaded once at startup and is never
// logged or returned in API responses.
type AppConfig struct {
	Secret string `yaml:"secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled bool     `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// defaultConfig returns the built-in configuration defaults. Secrets have no
// defaults and must come from the file, environment, or flags.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8000,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "./data/ifpass.db",
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "disable",
				MaxOpenConns: 25,
				MaxIdleConns: 5,
			},
		},
		JWT: JWTConfig{
			Expiration: 24 * time.Hour,
			Issuer:     "ifpass",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			CORSEnabled: true,
			CORSOrigins: []string{"*"},
		},
	}
}

// Load reads and parses the configuration file, then applies environment
// variable and command line flag overrides. A missing file is not an error;
// defaults plus overrides apply.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if flags != nil {
		if err := cfg.applyFlagOverrides(flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("IFPASS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("IFPASS_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("IFPASS_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("IFPASS_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("IFPASS_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("IFPASS_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("IFPASS_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("IFPASS_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("IFPASS_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// JWT overrides
	if jwtSecret := os.Getenv("IFPASS_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	// App overrides
	if appSecret := os.Getenv("IFPASS_APP_SECRET"); appSecret != "" {
		c.App.Secret = appSecret
	}

	// Logging overrides
	if logLevel := os.Getenv("IFPASS_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// applyFlagOverrides applies command line flag overrides to the configuration
func (c *Config) applyFlagOverrides(f *Flags) error {
	if v, set := f.GetServerPort(); set {
		c.Server.Port = v
	}
	if v, set := f.GetServerHost(); set {
		c.Server.Host = v
	}
	if v, set := f.GetServerReadTimeout(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid server.read-timeout: %w", err)
		}
		c.Server.ReadTimeout = d
	}
	if v, set := f.GetServerWriteTimeout(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid server.write-timeout: %w", err)
		}
		c.Server.WriteTimeout = d
	}
	if v, set := f.GetServerTLSEnabled(); set {
		c.Server.TLSEnabled = v
	}
	if v, set := f.GetServerTLSCert(); set {
		c.Server.TLSCert = v
	}
	if v, set := f.GetServerTLSKey(); set {
		c.Server.TLSKey = v
	}
	if v, set := f.GetDBType(); set {
		c.Database.Type = v
	}
	if v, set := f.GetDBSQLitePath(); set {
		c.Database.SQLite.Path = v
	}
	if v, set := f.GetDBPostgresHost(); set {
		c.Database.Postgres.Host = v
	}
	if v, set := f.GetDBPostgresPort(); set {
		c.Database.Postgres.Port = v
	}
	if v, set := f.GetDBPostgresDatabase(); set {
		c.Database.Postgres.Database = v
	}
	if v, set := f.GetDBPostgresUser(); set {
		c.Database.Postgres.User = v
	}
	if v, set := f.GetDBPostgresPassword(); set {
		c.Database.Postgres.Password = v
	}
	if v, set := f.GetDBPostgresSSLMode(); set {
		c.Database.Postgres.SSLMode = v
	}
	if v, set := f.GetJWTSecret(); set {
		c.JWT.Secret = v
	}
	if v, set := f.GetJWTExpiration(); set {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid jwt.expiration: %w", err)
		}
		c.JWT.Expiration = d
	}
	if v, set := f.GetJWTIssuer(); set {
		c.JWT.Issuer = v
	}
	if v, set := f.GetAppSecret(); set {
		c.App.Secret = v
	}
	if v, set := f.GetLogLevel(); set {
		c.Logging.Level = v
	}
	if v, set := f.GetLogFormat(); set {
		c.Logging.Format = v
	}
	if v, set := f.GetSecurityCORSEnabled(); set {
		c.Security.CORSEnabled = v
	}
	if v, set := f.GetSecurityCORSOrigins(); set {
		c.Security.CORSOrigins = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate secrets
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret not specified")
	}
	if c.App.Secret == "" {
		return fmt.Errorf("app secret not specified")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}
