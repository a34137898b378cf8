package midiin

import "log/slog"

// Service adapts Input to the service hub. A missing device is logged, not fatal
type Service struct {
	input   *Input
	port    string
	connect bool
}

// NewService wraps input. With connect set, Start opens port; otherwise the
// input stays closed until opened at runtime. Stop closes whatever is open
func NewService(input *Input, port string, connect bool) *Service {
	return &Service{input: input, port: port, connect: connect}
}

func (s *Service) Name() string           { return "midi" }
func (s *Service) Dependencies() []string { return nil }
func (s *Service) Init(args ...any) error { return nil }

func (s *Service) Start() error {
	if !s.connect {
		return nil
	}
	if err := s.input.Open(s.port); err != nil {
		slog.Warn("MIDI input unavailable, continuing without it", "port", s.port, "error", err)
	}
	return nil
}

func (s *Service) Stop() error {
	if s.input.Connected() {
		return s.input.Close()
	}
	return nil
}

// Input returns the wrapped input
func (s *Service) Input() *Input {
	return s.input
}
