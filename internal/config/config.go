package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for replaying an operation script.
type SimulateConfig struct {
	Script      string
	Name        string
	EventsOut   string
	PGDSN       string
	StateFile   string
	BatchSize   int
	FailFast    bool
	MetricsAddr string
	LogLevel    string
}

// QuoteConfig holds configuration for quoting against a stored pool.
type QuoteConfig struct {
	Name      string
	StateFile string
	PGDSN     string
	AmountIn  uint64
	LogLevel  string
}

// MirrorConfig holds configuration for bootstrapping a pool from a chain pair.
type MirrorConfig struct {
	RPCURL       string
	Pair         string
	Block        uint64
	Name         string
	StateFile    string
	PGDSN        string
	Force        bool
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"name":       "default",
		"events-out": "./data/events.jsonl",
		"batch-size": 500,
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Script:      v.GetString("script"),
		Name:        v.GetString("name"),
		EventsOut:   v.GetString("events-out"),
		PGDSN:       v.GetString("pg-dsn"),
		StateFile:   v.GetString("state-file"),
		BatchSize:   v.GetInt("batch-size"),
		FailFast:    v.GetBool("fail-fast"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.Script == "" {
		return SimulateConfig{}, fmt.Errorf("script is required")
	}
	if cfg.BatchSize <= 0 {
		return SimulateConfig{}, fmt.Errorf("batch-size must be positive, got %d", cfg.BatchSize)
	}
	return cfg, nil
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{"name": "default"})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Name:      v.GetString("name"),
		StateFile: v.GetString("state-file"),
		PGDSN:     v.GetString("pg-dsn"),
		AmountIn:  v.GetUint64("amount-in"),
		LogLevel:  v.GetString("log-level"),
	}
	if cfg.StateFile == "" && cfg.PGDSN == "" {
		return QuoteConfig{}, fmt.Errorf("state-file or pg-dsn is required")
	}
	return cfg, nil
}

// LoadMirror merges config file, environment variables, and flags into MirrorConfig.
func LoadMirror(cfgFile string, flags *pflag.FlagSet) (MirrorConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"name":          "default",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return MirrorConfig{}, err
	}

	cfg := MirrorConfig{
		RPCURL:       v.GetString("rpc"),
		Pair:         v.GetString("pair"),
		Block:        v.GetUint64("block"),
		Name:         v.GetString("name"),
		StateFile:    v.GetString("state-file"),
		PGDSN:        v.GetString("pg-dsn"),
		Force:        v.GetBool("force"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return MirrorConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.Pair == "" {
		return MirrorConfig{}, fmt.Errorf("pair address is required")
	}
	if cfg.StateFile == "" && cfg.PGDSN == "" {
		return MirrorConfig{}, fmt.Errorf("state-file or pg-dsn is required")
	}
	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
