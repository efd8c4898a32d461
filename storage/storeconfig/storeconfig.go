package storeconfig

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

// Config describes how to open an account store via storeregistry.
//
// Callers still need to link desired backend plugins via blank imports.
//
// Example file (JSON, YAML or TOML, anything viper reads):
//
//	{
//	  "backend": "redis",
//	  "options": {"redis-addr": "127.0.0.1:6379", "redis-db": "2"}
//	}
//
// Option keys mirror the backend's CLI flag names.
type Config struct {
	Backend string            `mapstructure:"backend"`
	Options map[string]string `mapstructure:"options"`
}

// envOptions maps backend option names to environment keys read by FromViper.
var envOptions = map[string]map[string]string{
	"localfs": {"localfs-dir": "SAS_LOCALFS_DIR"},
	"redis": {
		"redis-addr":     "SAS_REDIS_ADDR",
		"redis-password": "SAS_REDIS_PASSWORD",
		"redis-db":       "SAS_REDIS_DB",
		"redis-prefix":   "SAS_REDIS_PREFIX",
	},
	"postgres": {"postgres-dsn": "SAS_POSTGRES_DSN"},
	"grpc": {
		"grpc-target":  "SAS_GRPC_TARGET",
		"grpc-timeout": "SAS_GRPC_TIMEOUT",
	},
}

// FromViper reads SAS_STORE_BACKEND and the selected backend's options.
// For postgres without SAS_POSTGRES_DSN, the DSN is assembled from SAS_DB_*.
func FromViper(v *viper.Viper) Config {
	cfg := Config{Backend: v.GetString("SAS_STORE_BACKEND"), Options: map[string]string{}}
	for opt, key := range envOptions[cfg.Backend] {
		if s := v.GetString(key); s != "" {
			cfg.Options[opt] = s
		}
	}
	if cfg.Backend == "postgres" && cfg.Options["postgres-dsn"] == "" && v.GetString("SAS_DB_HOST") != "" {
		cfg.Options["postgres-dsn"] = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			v.GetString("SAS_DB_HOST"),
			v.GetInt("SAS_DB_PORT"),
			v.GetString("SAS_DB_USER"),
			v.GetString("SAS_DB_PASSWORD"),
			v.GetString("SAS_DB_NAME"),
			v.GetString("SAS_DB_SSLMODE"),
		)
	}
	return cfg
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("storeconfig: empty config path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Backend == "" {
		return errors.New("storeconfig: backend is required")
	}
	for k := range c.Options {
		if k == "" {
			return fmt.Errorf("storeconfig: empty option name for backend %q", c.Backend)
		}
	}
	return nil
}

// Open opens the configured backend for usage.
func (c Config) Open(usage storeregistry.Usage) (storage.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	s, closeFn, err := storeregistry.OpenWithConfig(c.Backend, usage, c.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("storeconfig: %w", err)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return s, closeFn, nil
}

// String renders the config without option values, which may hold secrets.
func (c Config) String() string {
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s%v", c.Backend, keys)
}
