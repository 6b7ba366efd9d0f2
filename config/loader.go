package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// LoadFile overlays the YAML (or any viper-supported format) file at
// path onto cfg.  Keys absent from the file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// durationDecodeHook decodes duration keys from strings like "30s" and
// from bare numbers, which count seconds as on the command line.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			return time.ParseDuration(data.(string))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return secondsDuration(int(reflect.ValueOf(data).Int())), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return secondsDuration(int(reflect.ValueOf(data).Uint())), nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		}
		return data, nil
	}
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the FILESH_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if envBool("FILESH_LISTEN") {
		cfg.Listen = true
	}
	if v := os.Getenv("FILESH_BIND"); v != "" {
		cfg.BindHost = v
	}
	if v := envInt("FILESH_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("FILESH_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := envInt("FILESH_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}
	if v := envInt("FILESH_MAX_LINE"); v > 0 {
		cfg.MaxLineLength = v
	}

	// Front-ends
	if v := envInt("FILESH_SSH_PORT"); v > 0 {
		cfg.SSHPort = v
	}
	if v := os.Getenv("FILESH_SSH_HOST_KEY"); v != "" {
		cfg.SSHHostKey = v
	}
	if v := os.Getenv("FILESH_ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}

	// Client
	if v := envInt("FILESH_RETRIES"); v > 0 {
		cfg.Retries = v
	}

	// Output
	if v := envInt("FILESH_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ConfigFileFromEnv returns FILESH_CONFIG, the config file used when
// --config is not given.
func ConfigFileFromEnv() string {
	return os.Getenv("FILESH_CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
