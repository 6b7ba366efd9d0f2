package core

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"filesh/config"
	ncerr "filesh/internal/errors"
	"filesh/util"
)

// AdminMode serves a small read-only HTTP endpoint next to the command
// protocol:
//
//	GET /healthz         liveness, always "ok"
//	GET /metrics         Prometheus exposition
//	GET /stats           metrics snapshot as JSON
//	GET /sessions        live sessions, oldest first
//	GET /sessions/{id}   one live session
type AdminMode struct {
	Address string
	Server  *Server
	Logger  *util.Logger
}

// Router builds the HTTP handler.
func (m *AdminMode) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	reg := m.Server.Metrics.Registry()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		m.Server.Metrics.RecordHealthCheck()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n")) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Server.Metrics.Snapshot())
	})
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, m.Server.Registry.Snapshot())
		})
		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			sess, ok := m.Server.Registry.Get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such session"})
				return
			}
			writeJSON(w, http.StatusOK, sess.Info())
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (m *AdminMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return ncerr.Wrap("listen", m.Address, err)
	}
	m.Logger.Info("admin endpoint on http://%s", ln.Addr())

	srv := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		m.Logger.Warn("admin shutdown: %v", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
