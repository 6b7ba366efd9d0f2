package core

import (
	"filesh/config"
	"filesh/internal/capability"
	"filesh/internal/metrics"
	"filesh/internal/protocol"
	"filesh/internal/retry"
	"filesh/internal/session"
	"filesh/internal/storage"
	"filesh/internal/transport"
	"filesh/util"
)

// Build constructs the appropriate Mode from the given configuration.
// This is the single dispatch point between the CLI and the modes.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildServe(cfg, logger)
	}
	return buildConnect(cfg, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) (Mode, error) {
	engine, err := storage.NewLocal(cfg.Root)
	if err != nil {
		return nil, err
	}
	logger.Verbose("serving root %s", cfg.Root)
	return NewServeMode(cfg, engine, logger), nil
}

// NewServeMode wires the listeners cfg enables around engine.
func NewServeMode(cfg *config.Config, engine storage.Engine, logger *util.Logger) *ServeMode {
	m := metrics.New()
	srv := &Server{
		Capability: &capability.Shell{Dispatcher: protocol.NewDispatcher(engine, m)},
		Registry:   session.NewRegistry(),
		Metrics:    m,
		Logger:     logger,
	}

	modes := []Mode{&ListenMode{
		Address:     cfg.ListenAddr(),
		MaxLine:     cfg.MaxLineLength,
		IdleTimeout: cfg.IdleTimeout,
		Server:      srv,
		Logger:      logger,
	}}
	if addr := cfg.SSHAddr(); addr != "" {
		modes = append(modes, &SSHListenMode{
			Address:     addr,
			HostKeyPath: cfg.SSHHostKey,
			Server:      srv,
			Logger:      logger,
		})
	}
	if cfg.AdminAddr != "" {
		modes = append(modes, &AdminMode{
			Address: cfg.AdminAddr,
			Server:  srv,
			Logger:  logger,
		})
	}

	return &ServeMode{Modes: modes, Server: srv, Logger: logger}
}

func buildConnect(cfg *config.Config, logger *util.Logger) Mode {
	return &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: config.DefaultConnTimeout},
		Address: util.FormatAddr(cfg.Host, cfg.Port),
		Backoff: retry.DialBackoff(cfg.Retries),
		Logger:  logger,
	}
}
