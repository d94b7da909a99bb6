// Package api serves cascade simulations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cascade-sim/internal/analysis"
	"cascade-sim/internal/logging"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/output"
	"cascade-sim/internal/scenario"
)

const (
	serviceName  = "cascading-failure"
	maxBodyBytes = 1 << 20
)

// Simulator runs one validated scenario.
type Simulator interface {
	Run(ctx context.Context, sc *scenario.Parameters, onProgress montecarlo.ProgressFunc) (*analysis.AggregateResult, error)
}

// Options configures a Server. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	// Writer receives every successful result in addition to the HTTP response.
	Writer output.ResultWriter
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RequestTimeout bounds one simulation. Zero means no limit beyond the
	// client connection.
	RequestTimeout time.Duration
}

// Server is the HTTP front end of the simulation engine.
type Server struct {
	router *chi.Mux
	sim    Simulator
	opts   Options
	log    *slog.Logger
}

// NewServer builds the router.
func NewServer(sim Simulator, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{router: chi.NewRouter(), sim: sim, opts: opts, log: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/simulate/cascade", s.handleSimulate)
		r.Get("/simulations/{id}", s.handleGetSimulation)
	})
}

// ServeHTTP lets Server be used as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("http server listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		log := s.log.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(logging.NewContext(r.Context(), log)))
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotImplemented, "simulation retrieval not implemented: "+chi.URLParam(r, "id"))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	sc, err := scenario.ParseJSON(body)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}
	res, err := s.sim.Run(ctx, sc, nil)
	if err != nil {
		logging.FromContext(ctx).Error("simulation failed", "scenario", sc.Name, "error", err)
		writeError(w, err)
		return
	}
	if s.opts.Writer != nil {
		if err := s.opts.Writer.WriteResult(res); err != nil {
			logging.FromContext(ctx).Warn("result export failed", "simulation_id", res.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps engine errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scenario.ErrInvalid):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, montecarlo.ErrCancelled):
		writeDetail(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "Simulation failed: "+err.Error())
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
