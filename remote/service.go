package remote

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// Service runs the Server on the service hub lifecycle
// The listener is bound in Start so address errors surface synchronously
type Service struct {
	server *Server
	addr   string
	deps   []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	bound  string
}

// NewService serves server on addr once started
func NewService(server *Server, addr string, deps ...string) *Service {
	return &Service{server: server, addr: addr, deps: deps}
}

func (s *Service) Name() string           { return "remote" }
func (s *Service) Dependencies() []string { return s.deps }
func (s *Service) Init(args ...any) error { return nil }

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.bound = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		if err := s.server.Serve(ctx, ln); err != nil {
			slog.Error("remote control server stopped", "addr", s.bound, "error", err)
		}
	}(s.done)

	slog.Info("remote control listening", "addr", s.bound)
	return nil
}

func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Addr returns the bound listen address, empty before Start
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}
