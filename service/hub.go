package service

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

var (
	ErrDuplicate         = errors.New("service already registered")
	ErrUnknownDependency = errors.New("dependency not registered")
	ErrCycle             = errors.New("dependency cycle")
	ErrNotInitialized    = errors.New("services not initialized")
)

// Hub owns the registered services and drives them through their lifecycle
// in dependency order. Start failures unwind whatever already came up
type Hub struct {
	mu      sync.RWMutex
	byName  map[string]Service
	order   []string // Resolved on InitAll, dropped on Register
	running []string // Started services in start order
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{byName: make(map[string]Service)}
}

// Register adds svc under its Name
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, ok := h.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	h.byName[name] = svc
	h.order = nil
	return nil
}

// Get looks up a service by name
func (h *Hub) Get(name string) (Service, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	svc, ok := h.byName[name]
	return svc, ok
}

// MustGet returns the named service as T, panicking when absent or of another type
func MustGet[T any](h *Hub, name string) T {
	svc, ok := h.Get(name)
	if !ok {
		panic(fmt.Sprintf("service not found: %s", name))
	}
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("service %s has type %T", name, svc))
	}
	return typed
}

// InitAll resolves the start order and initializes every service with args.
// A failing Init stops the services initialized before it, newest first
func (h *Hub) InitAll(args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		order, err := h.resolve()
		if err != nil {
			return err
		}
		h.order = order
	}

	for i, name := range h.order {
		if err := h.byName[name].Init(args...); err != nil {
			h.unwind(h.order[:i])
			return fmt.Errorf("init %s: %w", name, err)
		}
	}
	return nil
}

// StartAll starts services in resolved order. On failure the ones already
// started are stopped newest first and the hub is left with nothing running
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		return ErrNotInitialized
	}

	h.running = h.running[:0]
	for _, name := range h.order {
		if err := h.byName[name].Start(); err != nil {
			h.unwind(h.running)
			h.running = nil
			return fmt.Errorf("start %s: %w", name, err)
		}
		slog.Debug("service started", "service", name)
		h.running = append(h.running, name)
	}
	return nil
}

// StopAll stops running services newest first. Stop errors are logged and
// do not prevent the remaining services from stopping
func (h *Hub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unwind(h.running)
	h.running = nil
}

// Order returns the resolved start order, nil before InitAll
func (h *Hub) Order() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.order)
}

// Names returns registered service names in lexical order
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sortedNames()
}

func (h *Hub) unwind(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		if err := h.byName[names[i]].Stop(); err != nil {
			slog.Warn("service stop failed", "service", names[i], "error", err)
		}
	}
}

func (h *Hub) sortedNames() []string {
	names := make([]string, 0, len(h.byName))
	for name := range h.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolve orders services so each follows its dependencies. Roots and
// dependency lists are walked in lexical order, making the result stable
func (h *Hub) resolve() ([]string, error) {
	const (
		unseen = iota
		visiting
		done
	)
	mark := make(map[string]int, len(h.byName))
	order := make([]string, 0, len(h.byName))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch mark[name] {
		case done:
			return nil
		case visiting:
			start := slices.Index(path, name)
			cycle := append(slices.Clone(path[start:]), name)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}

		mark[name] = visiting
		path = append(path, name)

		deps := slices.Clone(h.byName[name].Dependencies())
		slices.Sort(deps)
		for _, dep := range deps {
			if _, ok := h.byName[dep]; !ok {
				return fmt.Errorf("%w: %s needs %s", ErrUnknownDependency, name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		mark[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range h.sortedNames() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
