package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"filesh/util"
)

// ServeMode runs several listeners over one shared Server.  The first
// listener to fail cancels the others; all of them stop on ctx.
type ServeMode struct {
	Modes  []Mode
	Server *Server
	Logger *util.Logger
}

// Run implements Mode.
func (m *ServeMode) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, mode := range m.Modes {
		g.Go(func() error { return mode.Run(ctx) })
	}
	err := g.Wait()
	m.Logger.Verbose("server stopped (%d sessions served)", m.Server.Metrics.TotalSessions())
	return err
}
