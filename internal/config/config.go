// Package config holds the application configuration, loaded from an
// optional YAML file with environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Library paths and organization behavior
	Library LibraryConfig `yaml:"library" json:"library"`

	// Scanner and job queue configuration
	Scanner ScannerConfig `yaml:"scanner" json:"scanner"`

	// Transcoding configuration
	Transcoding TranscodingConfig `yaml:"transcoding" json:"transcoding"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type string `yaml:"type" json:"type"` // "sqlite" or "postgres"

	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`

	PostgresHost     string `yaml:"postgres_host" json:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port" json:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user" json:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password" json:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db" json:"postgres_db"`
}

// LibraryConfig holds the filesystem layout for the music library
type LibraryConfig struct {
	// RootDir is the destination of organized files
	RootDir string `yaml:"root_dir" json:"root_dir"`

	// InboxDir is watched for newly dropped files
	InboxDir string `yaml:"inbox_dir" json:"inbox_dir"`

	// AutoOrganize is the default for the auto-organize setting when the
	// settings table has no value yet
	AutoOrganize bool `yaml:"auto_organize" json:"auto_organize"`
}

// ScannerConfig holds scanner and job queue settings
type ScannerConfig struct {
	// DebounceSeconds is the quiet window the inbox watcher waits for
	// before submitting pending files
	DebounceSeconds int `yaml:"debounce_seconds" json:"debounce_seconds"`

	// MaxAttempts is the number of times a job may run before it is dropped
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// TranscodingConfig holds external transcoder settings
type TranscodingConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" json:"ffprobe_path"`
}

// Default returns a Config populated with built-in defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Type:         "sqlite",
			SQLitePath:   "./data/chorus.db",
			PostgresHost: "localhost",
			PostgresPort: "5432",
		},
		Library: LibraryConfig{
			RootDir:      "./data/library",
			InboxDir:     "./data/inbox",
			AutoOrganize: false,
		},
		Scanner: ScannerConfig{
			DebounceSeconds: 3,
			MaxAttempts:     3,
		},
		Transcoding: TranscodingConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
	}
}

// Load reads configuration from the given YAML file (if it exists) and then
// applies environment variable overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}

	if v := os.Getenv("DATABASE_TYPE"); v != "" {
		c.Database.Type = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Database.PostgresHost = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		c.Database.PostgresPort = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Database.PostgresUser = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Database.PostgresPassword = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Database.PostgresDB = v
	}

	if v := os.Getenv("LIBRARY_DIR"); v != "" {
		c.Library.RootDir = v
	}
	if v := os.Getenv("INBOX_DIR"); v != "" {
		c.Library.InboxDir = v
	}
	if v := os.Getenv("AUTO_ORGANIZE"); v != "" {
		c.Library.AutoOrganize = v == "true" || v == "1"
	}

	if v := os.Getenv("SCAN_DEBOUNCE_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Scanner.DebounceSeconds = secs
		}
	}
	if v := os.Getenv("JOB_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.MaxAttempts = n
		}
	}

	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		c.Transcoding.FFmpegPath = v
	}
	if v := os.Getenv("FFPROBE_PATH"); v != "" {
		c.Transcoding.FFprobePath = v
	}
}

func (c *Config) validate() error {
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scanner.DebounceSeconds <= 0 {
		c.Scanner.DebounceSeconds = 3
	}
	if c.Scanner.MaxAttempts <= 0 {
		c.Scanner.MaxAttempts = 3
	}
	return nil
}

// DebounceWindow returns the watcher debounce window as a duration
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Scanner.DebounceSeconds) * time.Second
}
