// Package remote exposes the synth control plane over HTTP and WebSocket.
package remote

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lixenwraith/monosynth/constant"
	"github.com/lixenwraith/monosynth/status"
	"github.com/lixenwraith/monosynth/synth"
)

const shutdownTimeout = 5 * time.Second

// Server is the Echo application
type Server struct {
	echo      *echo.Echo
	engine    *synth.Engine
	bridge    *synth.Bridge
	transport Transport
	clients   *atomic.Int64
	metrics   *status.Registry
}

// New constructs an Echo app with REST and WebSocket routes
// transport may be nil, in which case /api/transport reports unavailable
func New(engine *synth.Engine, transport Transport) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		engine:    engine,
		bridge:    engine.Bridge(),
		transport: transport,
		clients:   new(atomic.Int64),
	}
	s.registerRoutes()
	return s
}

// SetMetrics publishes the connected client count into reg and serves reg
// on /api/metrics. Call before serving
func (s *Server) SetMetrics(reg *status.Registry) {
	s.metrics = reg
	s.clients = reg.Counter(status.KeyRemoteClients)
}

// Echo exposes the underlying Echo instance for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/state", s.handleState)
	s.echo.GET("/api/metrics", s.handleMetrics)
	s.echo.PUT("/api/params", s.handleParams)
	s.echo.POST("/api/note", s.handleNote)
	s.echo.POST("/api/gate", s.handleGate)
	s.echo.POST("/api/panic", s.handlePanic)
	s.echo.POST("/api/transport", s.handleTransport)
	newHandler(s).Register(s.echo)
}

// Run listens on addr and serves until ctx cancellation or startup failure
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an open listener until ctx cancellation
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(ln.Addr().String())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

// State returns the current control-plane snapshot
func (s *Server) State() State {
	return snapshotState(s.engine, s.transport)
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int64  `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.clients.Load(),
	})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.State())
}

func (s *Server) handleMetrics(c echo.Context) error {
	if s.metrics == nil {
		return c.JSON(http.StatusOK, map[string]any{})
	}
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleParams(c echo.Context) error {
	var patch ParamPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parameter patch")
	}
	patch.Apply(s.bridge)
	return c.JSON(http.StatusOK, s.State())
}

type noteRequest struct {
	Note     *int `json:"note"`
	Velocity *int `json:"velocity"`
}

func (s *Server) handleNote(c echo.Context) error {
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note request")
	}
	if msg := applyNote(s.bridge, req.Note, req.Velocity); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	return c.JSON(http.StatusOK, s.State())
}

type gateRequest struct {
	Open bool `json:"open"`
}

func (s *Server) handleGate(c echo.Context) error {
	var req gateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid gate request")
	}
	s.bridge.Gate(req.Open)
	return c.JSON(http.StatusOK, s.State())
}

func (s *Server) handlePanic(c echo.Context) error {
	s.bridge.Panic()
	return c.JSON(http.StatusOK, s.State())
}

type transportRequest struct {
	Playing *bool `json:"playing"`
}

func (s *Server) handleTransport(c echo.Context) error {
	if s.transport == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "transport is not available")
	}
	var req transportRequest
	if err := c.Bind(&req); err != nil || req.Playing == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "playing is required")
	}
	if err := s.transport.SetPlaying(*req.Playing); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s.State())
}

// applyNote validates and forwards a note request, returning an error message on rejection
// Velocity defaults to 100 and 0 means note-off
func applyNote(b *synth.Bridge, note, velocity *int) string {
	if note == nil {
		return "note is required"
	}
	if *note < 0 || *note >= constant.MIDINoteCount {
		return "note must be in [0, 127]"
	}
	vel := defaultVelocity
	if velocity != nil {
		vel = *velocity
	}
	if vel < 0 || vel > 127 {
		return "velocity must be in [0, 127]"
	}
	b.NoteOn(uint8(*note), uint8(vel))
	return ""
}
