// Package api hosts the HTTP front door: the chi router with the v1 routes
// mounted, shared middleware and graceful shutdown.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"flash-code/internal/infra/api/apiv1"
)

const requestTimeout = 30 * time.Second

type Server struct {
	v1     *apiv1.Server
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(v1 *apiv1.Server, logger *zerolog.Logger) *Server {
	return &Server{v1: v1, log: logger}
}

// Handler builds the full route tree. Exposed separately so tests can drive
// it without opening a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	apiv1.RegisterAPIV1(r, s.v1)
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
