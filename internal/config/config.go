// Package config loads daemon and CLI settings from .env files and the
// environment via viper.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/program"
	"github.com/0xterrybit/solana-attestation-service/storage/storeconfig"
)

type Config struct {
	ProgramID address.Address
	Store     storeconfig.Config
	Server    ServerConfig
	KeysDir   string
	Log       LogConfig
	Rent      ledger.Rent
}

type ServerConfig struct {
	GRPCListen string
	HTTPListen string
}

type LogConfig struct {
	Level  string
	Format string
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig registers defaults and reads .env.<env> from the working
// directory or the project root when one exists. Environment variables take
// precedence over the file.
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}
	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	if root, err := findProjectRoot(); err == nil {
		viper.AddConfigPath(root)
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return fmt.Errorf("read .env.%s: %w", env, err)
		}
	}
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetDefault("SAS_PROGRAM_ID", program.DefaultID.String())
	viper.SetDefault("SAS_STORE_BACKEND", "localfs")
	viper.SetDefault("SAS_LOCALFS_DIR", filepath.Join(home, ".sas", "ledger"))
	viper.SetDefault("SAS_REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("SAS_GRPC_LISTEN", "127.0.0.1:7420")
	viper.SetDefault("SAS_GRPC_TARGET", "127.0.0.1:7420")
	viper.SetDefault("SAS_HTTP_LISTEN", "127.0.0.1:8420")
	viper.SetDefault("SAS_KEYS_DIR", filepath.Join(home, ".sas", "keys"))
	viper.SetDefault("SAS_LOG_LEVEL", "info")
	viper.SetDefault("SAS_LOG_FORMAT", "text")
	viper.SetDefault("SAS_RENT_LAMPORTS_PER_BYTE_YEAR", ledger.DefaultRent().LamportsPerByteYear)
	viper.SetDefault("SAS_RENT_EXEMPTION_THRESHOLD", ledger.DefaultRent().ExemptionThreshold)

	// Only consulted when the postgres backend has no SAS_POSTGRES_DSN.
	viper.SetDefault("SAS_DB_PORT", 5432)
	viper.SetDefault("SAS_DB_USER", "sas")
	viper.SetDefault("SAS_DB_NAME", "sas_dev")
	viper.SetDefault("SAS_DB_SSLMODE", "disable")
	return nil
}

// Load builds a Config from viper. InitConfig must run first.
func Load() (*Config, error) {
	pid, err := address.Parse(viper.GetString("SAS_PROGRAM_ID"))
	if err != nil {
		return nil, fmt.Errorf("SAS_PROGRAM_ID: %w", err)
	}
	store := storeconfig.FromViper(viper.GetViper())
	if err := store.Validate(); err != nil {
		return nil, err
	}
	cfg := &Config{
		ProgramID: pid,
		Store:     store,
		Server: ServerConfig{
			GRPCListen: viper.GetString("SAS_GRPC_LISTEN"),
			HTTPListen: viper.GetString("SAS_HTTP_LISTEN"),
		},
		KeysDir: viper.GetString("SAS_KEYS_DIR"),
		Log: LogConfig{
			Level:  viper.GetString("SAS_LOG_LEVEL"),
			Format: viper.GetString("SAS_LOG_FORMAT"),
		},
		Rent: ledger.Rent{
			LamportsPerByteYear: viper.GetUint64("SAS_RENT_LAMPORTS_PER_BYTE_YEAR"),
			ExemptionThreshold:  viper.GetUint64("SAS_RENT_EXEMPTION_THRESHOLD"),
		},
	}
	if cfg.Rent.LamportsPerByteYear == 0 || cfg.Rent.ExemptionThreshold == 0 {
		return nil, fmt.Errorf("rent parameters must be positive, got %+v", cfg.Rent)
	}
	return cfg, nil
}

// NewLogger builds a text or JSON slog logger writing to w.
func NewLogger(w io.Writer, c LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", c.Format)
	}
}
