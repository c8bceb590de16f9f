// Package config loads the service configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/zedseven/textsteg"
	"github.com/zedseven/textsteg/internal/codec"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config contains all service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	// OutputDir is where encoded images are written.
	OutputDir string `yaml:"output_dir"`

	// An empty PostgresDSN selects the in-memory store.
	PostgresDSN string `yaml:"postgres_dsn"`

	// An empty RedisAddr disables the record cache.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheCodec    string        `yaml:"cache_codec"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	OutputLevel    string   `yaml:"output_level"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	var c Config
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Minute
	}
	if c.CacheCodec == "" {
		c.CacheCodec = codec.Default.Name()
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.OutputLevel == "" {
		c.OutputLevel = textsteg.OutputSteps.String()
	}
}

// Load reads the YAML file at path and fills in defaults. A missing file yields Defaults().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Config{}, fmt.Errorf("failed to read configuration file '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills in defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if _, err := textsteg.ParseOutputLevel(c.OutputLevel); err != nil {
		return fmt.Errorf("%w: output_level: %v", ErrInvalidConfig, err)
	}
	if _, ok := codec.ByName(c.CacheCodec); !ok {
		return fmt.Errorf("%w: unknown cache_codec %q", ErrInvalidConfig, c.CacheCodec)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache_ttl must be non-negative", ErrInvalidConfig)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: max_upload_bytes must be non-negative", ErrInvalidConfig)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("%w: redis_db must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed output level.
func (c Config) Level() textsteg.OutputLevel {
	lvl, _ := textsteg.ParseOutputLevel(c.OutputLevel)
	return lvl
}

// Codec returns the configured cache codec.
func (c Config) Codec() codec.Codec {
	cd, ok := codec.ByName(c.CacheCodec)
	if !ok {
		return codec.Default
	}
	return cd
}
