package server

import (
	"log/slog"
	"net/http"

	"github.com/parleylabs/interviewd/pkg/analysis"
	"github.com/parleylabs/interviewd/pkg/gateway/config"
	"github.com/parleylabs/interviewd/pkg/gateway/handlers"
	"github.com/parleylabs/interviewd/pkg/gateway/lifecycle"
	"github.com/parleylabs/interviewd/pkg/gateway/mw"
	"github.com/parleylabs/interviewd/pkg/interview"
	"github.com/parleylabs/interviewd/pkg/storage"
)

// Dependencies carries the wired application components the server routes to.
type Dependencies struct {
	Registry     *interview.Registry
	Orchestrator *interview.Orchestrator
	Planner      *analysis.Planner
	Store        storage.Provider
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	deps      Dependencies
	lifecycle *lifecycle.Lifecycle
}

func New(cfg config.Config, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		deps:      deps,
		lifecycle: &lifecycle.Lifecycle{},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Config:    s.cfg,
		Lifecycle: s.lifecycle,
		Sessions:  s.deps.Registry,
	})

	s.mux.Handle("POST /v1/interviews", handlers.StartInterviewHandler{
		Service:   s.deps.Orchestrator,
		Planner:   s.deps.Planner,
		Logger:    s.logger,
		Lifecycle: s.lifecycle,
	})
	s.mux.Handle("GET /v1/interviews/{id}", handlers.GetInterviewHandler{
		Store: s.deps.Store,
	})
	s.mux.Handle("DELETE /v1/interviews/{id}", handlers.EndInterviewHandler{
		Service: s.deps.Orchestrator,
		Store:   s.deps.Store,
		Logger:  s.logger,
	})
	s.mux.Handle("GET /v1/interviews/{id}/chat", handlers.ChatHandler{
		Config:    s.cfg,
		Service:   s.deps.Orchestrator,
		Store:     s.deps.Store,
		Logger:    s.logger,
		Lifecycle: s.lifecycle,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness so load balancers stop routing new work here.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// EndLiveSessions terminates every live interview and persists the records,
// for the graceful shutdown sweep.
func (s *Server) EndLiveSessions() int {
	recs := s.deps.Orchestrator.EndAll()
	for _, rec := range recs {
		handlers.PersistRecord(s.deps.Store, s.logger, rec)
	}
	return len(recs)
}
