package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// Server runs the gateway's HTTP listener. Write timeouts stay unset because
// completions stream for minutes; the request timeout is enforced per
// completion inside the gateway service.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *observability.Logger
}

// NewServer binds the listener. handler is typically Handler.Mount().
func NewServer(addr string, handler http.Handler, logger *observability.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("http listen: %w", err)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the bound address, which differs from the configured one when
// the port was 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until the server stops. A graceful Shutdown yields nil.
func (s *Server) Serve() error {
	if s.logger != nil {
		s.logger.Info(context.Background(), "starting http server", "addr", s.Addr())
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
