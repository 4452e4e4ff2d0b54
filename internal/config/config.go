// Package config resolves runtime settings from defaults, an optional YAML
// file and TADA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/tarefas/internal/kv/filekv"
	"github.com/Makepad-fr/tarefas/internal/remote"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. TADA_API_URL.
	EnvPrefix = "TADA"
	// ConfigFile lives in the data dir.
	ConfigFile = "config.yaml"
)

// Backends for the local store.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Sinks for remote sync.
const (
	SinkHTTP  = "http"
	SinkKafka = "kafka"
	SinkNone  = "none"
)

type Config struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
	Backend string `yaml:"backend" envconfig:"BACKEND"`

	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	// SQLDSN is a file path for sqlite and a go-sql-driver DSN for mysql.
	SQLDSN string `yaml:"sql_dsn" envconfig:"SQL_DSN"`

	Sink         string        `yaml:"sink" envconfig:"SINK"`
	APIURL       string        `yaml:"api_url" envconfig:"API_URL"`
	KafkaBrokers string        `yaml:"kafka_brokers" envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string        `yaml:"kafka_topic" envconfig:"KAFKA_TOPIC"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	NoColor     bool   `yaml:"no_color" ignored:"true"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Backend:    BackendFile,
		RedisAddr:  "localhost:6379",
		Sink:       SinkHTTP,
		APIURL:     remote.DefaultBaseURL,
		KafkaTopic: remote.DefaultTopic,
		Timeout:    10 * time.Second,
		LogLevel:   "warn",
	}
}

// Load resolves the configuration. An empty path means
// <data dir>/config.yaml; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	// env first pass so TADA_DATA_DIR can point at the config file
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env: %w", err)
	}
	if cfg.DataDir == "" {
		dir, err := filekv.DefaultDir()
		if err != nil {
			return cfg, err
		}
		cfg.DataDir = dir
	}

	if path == "" {
		path = filepath.Join(cfg.DataDir, ConfigFile)
	}
	if err := mergeFile(&cfg, path); err != nil {
		return cfg, err
	}

	// env wins over the file
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Sink = strings.ToLower(strings.TrimSpace(cfg.Sink))
	if cfg.SQLDSN == "" && cfg.Backend == BackendSQLite {
		cfg.SQLDSN = filepath.Join(cfg.DataDir, "tarefas.db")
	}
	return cfg, cfg.Validate()
}

func mergeFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Validate rejects unknown backends and sinks.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendFile, BackendRedis, BackendSQLite:
	case BackendMySQL:
		if c.SQLDSN == "" {
			return fmt.Errorf("backend mysql needs sql_dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch strings.ToLower(c.Sink) {
	case SinkHTTP, SinkNone:
	case SinkKafka:
		if c.KafkaBrokers == "" {
			return fmt.Errorf("sink kafka needs kafka_brokers")
		}
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	return nil
}
