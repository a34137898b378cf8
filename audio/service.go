package audio

// Service adapts AudioEngine to the service hub lifecycle
type Service struct {
	engine *AudioEngine
}

// NewService wraps engine
func NewService(engine *AudioEngine) *Service {
	return &Service{engine: engine}
}

func (s *Service) Name() string           { return "audio" }
func (s *Service) Dependencies() []string { return nil }
func (s *Service) Init(args ...any) error { return nil }
func (s *Service) Start() error           { return s.engine.Start() }

func (s *Service) Stop() error {
	s.engine.Stop()
	return nil
}

// Engine returns the wrapped engine
func (s *Service) Engine() *AudioEngine {
	return s.engine
}
