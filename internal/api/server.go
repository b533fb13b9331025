package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/tami/internal/processor"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

type Server struct {
	router  *chi.Mux
	port    int
	proc    *processor.Processor
	emitter telemetry.Emitter
	logger  *slog.Logger
}

func NewServer(port int, proc *processor.Processor, em telemetry.Emitter, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if em == nil {
		em = telemetry.Nop{}
	}
	s := &Server{
		router:  router,
		port:    port,
		proc:    proc,
		emitter: em,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/tami/status", s.status)
	router.Post("/api/v1/tools/call", s.toolCall)
	router.Post("/api/v1/leads", s.createLead)
	router.Get("/api/v1/leads/recent", s.recentLeads)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":    "tami",
		"status":   "ready",
		"strategy": s.proc.Strategy().Strategy,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
