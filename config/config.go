// Package config defines the runtime configuration for filesh and the
// layers it is assembled from: defaults, an optional YAML file, FILESH_*
// environment variables and CLI flags.
package config

import (
	"fmt"
	"time"

	ncerr "filesh/internal/errors"
	"filesh/util"
)

// Config holds every tuneable for a filesh process.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Listen        bool          `mapstructure:"listen"`
	BindHost      string        `mapstructure:"bind"`
	Port          int           `mapstructure:"port"`
	Root          string        `mapstructure:"root"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	MaxLineLength int           `mapstructure:"max_line_length"`

	// ── Optional front-ends ──────────────────────────────────────────
	SSHPort    int    `mapstructure:"ssh_port"`     // 0 disables the SSH listener
	SSHHostKey string `mapstructure:"ssh_host_key"` // PEM private key; empty → ephemeral
	AdminAddr  string `mapstructure:"admin_addr"`   // empty disables the admin HTTP endpoint

	// ── Client ───────────────────────────────────────────────────────
	Host    string `mapstructure:"host"`
	Retries int    `mapstructure:"retries"` // total dial attempts

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `mapstructure:"verbose"`

	ConfigFile string `mapstructure:"-"`
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:          DefaultPort,
		Root:          DefaultRoot,
		MaxLineLength: DefaultMaxLineLength,
		Retries:       DefaultRetries,
	}
}

// ListenAddr is the TCP address the command protocol is served on.
func (c *Config) ListenAddr() string {
	return util.FormatAddr(c.BindHost, c.Port)
}

// SSHAddr is the address of the SSH front-end, or "" when disabled.
func (c *Config) SSHAddr() string {
	if c.SSHPort == 0 {
		return ""
	}
	return util.FormatAddr(c.BindHost, c.SSHPort)
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("the reference port is %d", DefaultPort),
		}
	}
	if c.MaxLineLength < 1 {
		return &ncerr.ConfigError{
			Field:   "max-line",
			Value:   c.MaxLineLength,
			Message: "must be positive",
		}
	}
	if c.IdleTimeout < 0 {
		return &ncerr.ConfigError{
			Field:   "timeout",
			Value:   c.IdleTimeout,
			Message: "must not be negative",
		}
	}

	if c.Listen {
		return c.validateServer()
	}

	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "hostname is required in connect mode",
			Hint:    "use -l to run the server instead",
		}
	}
	if c.Retries < 1 {
		return &ncerr.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "must be at least 1",
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Root == "" {
		return &ncerr.ConfigError{
			Field:   "root",
			Message: "required in listen mode",
			Hint:    "point -r at the directory every session shares",
		}
	}
	if c.SSHPort < 0 || c.SSHPort > 65535 {
		return &ncerr.ConfigError{
			Field:   "ssh-port",
			Value:   c.SSHPort,
			Message: "out of range 0-65535",
			Hint:    "use 0 to disable the SSH listener",
		}
	}
	if c.SSHPort != 0 && c.SSHPort == c.Port {
		return &ncerr.ConfigError{
			Field:   "ssh-port",
			Value:   c.SSHPort,
			Message: "collides with --port",
		}
	}
	if c.SSHHostKey != "" && c.SSHPort == 0 {
		return &ncerr.ConfigError{
			Field:   "ssh-host-key",
			Value:   c.SSHHostKey,
			Message: "set without --ssh-port",
			Hint:    "enable the SSH listener with --ssh-port",
		}
	}
	if c.AdminAddr != "" && c.AdminAddr == c.ListenAddr() {
		return &ncerr.ConfigError{
			Field:   "admin-addr",
			Value:   c.AdminAddr,
			Message: "collides with the command listener",
		}
	}
	return nil
}
