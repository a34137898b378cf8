package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lixenwraith/monosynth/service"
	"github.com/lixenwraith/monosynth/synth"
)

// watchdogService runs the stuck-note watchdog on the hub lifecycle
type watchdogService struct {
	dog *synth.Watchdog

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newWatchdogService(dog *synth.Watchdog) *watchdogService {
	return &watchdogService{dog: dog}
}

func (s *watchdogService) Name() string           { return "watchdog" }
func (s *watchdogService) Dependencies() []string { return nil }
func (s *watchdogService) Init(args ...any) error { return nil }

func (s *watchdogService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.dog.Run(ctx)
	}(s.done)
	return nil
}

func (s *watchdogService) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// optionalService logs start failures instead of aborting the hub
type optionalService struct {
	service.Service
}

func (s optionalService) Start() error {
	if err := s.Service.Start(); err != nil {
		slog.Warn("optional service unavailable, continuing without it", "service", s.Name(), "error", err)
	}
	return nil
}
