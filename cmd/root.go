// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"filesh/config"
	"filesh/internal/core"
	"filesh/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X filesh/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stderr is where usage and dry-run output go; tests redirect it.
var stderr io.Writer = os.Stderr //nolint:gochecknoglobals

// Execute parses args and runs the appropriate filesh mode.
//
// Settings are layered: defaults, then the YAML file named by --config
// or FILESH_CONFIG, then FILESH_* variables, then flags given on the
// command line.
func Execute(ctx context.Context, args []string) error {
	fl := config.Default()
	fs := flag.NewFlagSet("filesh", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── server ───────────────────────────────────────────────────
	fs.BoolVarP(&fl.Listen, "listen", "l", false, "Serve the shared directory")
	fs.StringVarP(&fl.BindHost, "bind", "b", "", "Bind address (all interfaces if empty)")
	fs.IntVarP(&fl.Port, "port", "p", config.DefaultPort, "Command protocol port")
	fs.StringVarP(&fl.Root, "root", "r", config.DefaultRoot, "Shared root directory")
	fs.IntVar(&fl.MaxLineLength, "max-line", config.DefaultMaxLineLength, "Maximum command line length in bytes")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Idle timeout in seconds (0 disables)")

	// ── front-ends ───────────────────────────────────────────────
	fs.IntVar(&fl.SSHPort, "ssh-port", 0, "Also serve over SSH on this port")
	fs.StringVar(&fl.SSHHostKey, "ssh-host-key", "", "SSH host private key (ephemeral if empty)")
	fs.StringVar(&fl.AdminAddr, "admin-addr", "", "Admin HTTP address, e.g. 127.0.0.1:9100")

	// ── client ───────────────────────────────────────────────────
	fs.IntVar(&fl.Retries, "retries", config.DefaultRetries, "Connection attempts in client mode")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fl.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var configFile string
	fs.StringVar(&configFile, "config", "", "YAML config file")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stderr, "filesh %s\n", version)
		return nil
	}

	// ── layer ────────────────────────────────────────────────────
	cfg := config.Default()
	if configFile == "" {
		configFile = config.ConfigFileFromEnv()
	}
	if configFile != "" {
		if err := config.LoadFile(configFile, cfg); err != nil {
			return err
		}
		cfg.ConfigFile = configFile
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, fl, timeoutSec, cfg)

	// A bare invocation shows usage unless the file or env selects a mode.
	if len(args) == 0 && !cfg.Listen {
		printUsage(fs)
		return nil
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dryRun {
		printSummary(cfg)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	defer logger.Sync() //nolint:errcheck

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags copies every flag the user actually set from fl to cfg.
func applyFlags(fs *flag.FlagSet, fl *config.Config, timeoutSec int, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = fl.Listen
		case "bind":
			cfg.BindHost = fl.BindHost
		case "port":
			cfg.Port = fl.Port
		case "root":
			cfg.Root = fl.Root
		case "max-line":
			cfg.MaxLineLength = fl.MaxLineLength
		case "timeout":
			cfg.IdleTimeout = time.Duration(timeoutSec) * time.Second
		case "ssh-port":
			cfg.SSHPort = fl.SSHPort
		case "ssh-host-key":
			cfg.SSHHostKey = fl.SSHHostKey
		case "admin-addr":
			cfg.AdminAddr = fl.AdminAddr
		case "retries":
			cfg.Retries = fl.Retries
		case "verbose":
			cfg.Verbose = fl.Verbose
		}
	})
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	// Client mode: host[:port] | host port
	switch len(remaining) {
	case 0:
		return fmt.Errorf("hostname required (use --help for usage)")
	case 1:
		host, port, err := util.ParseHostPort(remaining[0], cfg.Port)
		if err != nil {
			return err
		}
		cfg.Host, cfg.Port = host, port
	case 2:
		cfg.Host = remaining[0]
		port, err := strconv.Atoi(remaining[1])
		if err != nil {
			return fmt.Errorf("port %q: not a number", remaining[1])
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments for client mode")
	}
	return nil
}

func printSummary(cfg *config.Config) {
	if !cfg.Listen {
		fmt.Fprintf(stderr, "connect %s (%d attempts)\n", util.FormatAddr(cfg.Host, cfg.Port), cfg.Retries)
		return
	}
	fmt.Fprintf(stderr, "serve %s on %s\n", cfg.Root, cfg.ListenAddr())
	if addr := cfg.SSHAddr(); addr != "" {
		fmt.Fprintf(stderr, "  ssh   %s\n", addr)
	}
	if cfg.AdminAddr != "" {
		fmt.Fprintf(stderr, "  admin %s\n", cfg.AdminAddr)
	}
	if cfg.IdleTimeout > 0 {
		fmt.Fprintf(stderr, "  idle timeout %s\n", cfg.IdleTimeout)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `filesh – shared remote file shell v%s

Usage:
  filesh -l [options]                 Serve the shared directory
  filesh [options] <host> [port]      Connect to a server
  filesh [options] <host:port>

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  filesh -l -r /srv/share                     Serve /srv/share on port %d
  filesh -l --ssh-port 2222 --admin-addr :9100
  filesh files.example                        Connect and start typing commands
  telnet files.example %d                   Any line client works too
`, config.DefaultPort, config.DefaultPort)
}
