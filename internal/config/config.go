package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Tuning  TuningConfig  `mapstructure:"tuning"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds crate server connection settings
type ServerConfig struct {
	URL          string `mapstructure:"url"`           // Catalog server base URL
	Token        string `mapstructure:"token"`         // Bearer token
	OutputTarget string `mapstructure:"output_target"` // Playback output zone/renderer
}

// TuningConfig holds the engine tunables. None of these are hard-coded in
// the engine; tests and deployments override them here.
type TuningConfig struct {
	GenreCacheTTL       time.Duration `mapstructure:"genre_cache_ttl"`      // Freshness window for the genre list
	MaxRandomAttempts   int           `mapstructure:"max_random_attempts"`  // Base budget for unplayed sampling
	MaxSessionHistory   int           `mapstructure:"max_session_history"`  // Anti-repeat set capacity
	MaxPageIterations   int           `mapstructure:"max_page_iterations"`  // Pagination safety bound
	ArtistQueueSize     int           `mapstructure:"artist_queue_size"`    // Exploration queue depth limit
	SubgenreMinAlbums   int           `mapstructure:"subgenre_min_albums"`  // Minimum album count to list a subgenre
	ExpandableThreshold int           `mapstructure:"expandable_threshold"` // Album count at which a genre is expandable
	ImageCacheSize      int           `mapstructure:"image_cache_size"`     // Max entries in the image LRU
	PageSize            int           `mapstructure:"page_size"`            // Items per browse page
}

// CacheConfig holds on-disk cache settings
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Snapshot directory; empty disables persistence
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:          "",
			Token:        "",
			OutputTarget: "default",
		},
		Tuning: TuningConfig{
			GenreCacheTTL:       time.Hour,
			MaxRandomAttempts:   40,
			MaxSessionHistory:   200,
			MaxPageIterations:   50,
			ArtistQueueSize:     8,
			SubgenreMinAlbums:   3,
			ExpandableThreshold: 10,
			ImageCacheSize:      64,
			PageSize:            50,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "cratedig", "cratedig.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "cratedig", "cratedig.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "cratedig")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "cratedig")
	}
}

// defaultCachePath returns the default snapshot directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "cratedig", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "cratedig", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides, e.g. CRATEDIG_SERVER_URL
	viper.SetEnvPrefix("CRATEDIG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.token", cfg.Server.Token)
	viper.Set("server.output_target", cfg.Server.OutputTarget)

	viper.Set("tuning.genre_cache_ttl", cfg.Tuning.GenreCacheTTL)
	viper.Set("tuning.max_random_attempts", cfg.Tuning.MaxRandomAttempts)
	viper.Set("tuning.max_session_history", cfg.Tuning.MaxSessionHistory)
	viper.Set("tuning.max_page_iterations", cfg.Tuning.MaxPageIterations)
	viper.Set("tuning.artist_queue_size", cfg.Tuning.ArtistQueueSize)
	viper.Set("tuning.subgenre_min_albums", cfg.Tuning.SubgenreMinAlbums)
	viper.Set("tuning.expandable_threshold", cfg.Tuning.ExpandableThreshold)
	viper.Set("tuning.image_cache_size", cfg.Tuning.ImageCacheSize)
	viper.Set("tuning.page_size", cfg.Tuning.PageSize)

	viper.Set("cache.dir", cfg.Cache.Dir)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}
