// Package config loads replica configuration from an optional .env file and
// environment variables, the way KartikBazzad-bunbase/pkg/config layers
// viper over both sources into a single struct.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything one replica process needs to start: which
// coordination-service ensemble to join, which table/replica it is, where
// to keep part data on disk, and how often to run its execution loop.
type Config struct {
	ZKEnsemble     []string      `mapstructure:"zk_ensemble"`
	ZKSessionTimeout time.Duration `mapstructure:"zk_session_timeout"`
	Table          string        `mapstructure:"table"`
	Replica        string        `mapstructure:"replica"`
	DataDir        string        `mapstructure:"data_dir"`
	BatchSize      int           `mapstructure:"batch_size"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	ListenAddr     string        `mapstructure:"listen_addr"`
}

// defaults mirrors the zero-config path a single-node test deployment
// would use.
func defaults() Config {
	return Config{
		ZKEnsemble:       []string{"127.0.0.1:2181"},
		ZKSessionTimeout: 10 * time.Second,
		BatchSize:        100,
		TickInterval:     5 * time.Second,
		ListenAddr:       ":8080",
	}
}

// Load reads .env (if present) and environment variables prefixed with
// MTQUEUE_ into a Config, the way config.Load mimics koanf's env.Provider
// on top of viper rather than relying on viper.AutomaticEnv.
func Load(prefix string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading .env: %w", err)
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		propKey := strings.TrimPrefix(key, prefixUpper)
		propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
		propKey = strings.TrimPrefix(propKey, ".")
		v.Set(propKey, value)
	}

	if v.IsSet("zk.ensemble") {
		cfg.ZKEnsemble = strings.Split(v.GetString("zk.ensemble"), ",")
	}
	if v.IsSet("zk.session.timeout") {
		cfg.ZKSessionTimeout = v.GetDuration("zk.session.timeout")
	}
	if v.IsSet("table") {
		cfg.Table = v.GetString("table")
	}
	if v.IsSet("replica") {
		cfg.Replica = v.GetString("replica")
	}
	if v.IsSet("data.dir") {
		cfg.DataDir = v.GetString("data.dir")
	}
	if v.IsSet("batch.size") {
		cfg.BatchSize = v.GetInt("batch.size")
	}
	if v.IsSet("tick.interval") {
		cfg.TickInterval = v.GetDuration("tick.interval")
	}
	if v.IsSet("listen.addr") {
		cfg.ListenAddr = v.GetString("listen.addr")
	}

	if cfg.Table == "" {
		return cfg, fmt.Errorf("%stable is required", prefixUpper)
	}
	if cfg.Replica == "" {
		return cfg, fmt.Errorf("%sreplica is required", prefixUpper)
	}
	if cfg.DataDir == "" {
		return cfg, fmt.Errorf("%sdata_dir is required", prefixUpper)
	}

	return cfg, nil
}
