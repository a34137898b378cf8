package remote

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 1 << 16
	sendQueue    = 16
)

// handler owns the WebSocket control stream
type handler struct {
	server   *Server
	upgrader websocket.Upgrader
}

func newHandler(s *Server) *handler {
	return &handler{
		server: s,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Register binds the WebSocket route on an Echo router
func (h *handler) Register(e *echo.Echo) {
	e.GET("/ws", h.handleWebSocket)
}

func (h *handler) handleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	h.serveConn(conn)
	return nil
}

// serveConn pushes a state snapshot on connect and on every bridge change,
// and applies inbound control messages until the client disconnects
func (h *handler) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	h.server.clients.Add(1)
	defer h.server.clients.Add(-1)

	changes, unsubscribe := h.server.bridge.Subscribe()
	defer unsubscribe()

	out := make(chan Message, sendQueue)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			var msg Message
			select {
			case <-done:
				return
			case msg = <-out:
			case <-changes:
				st := h.server.State()
				msg = Message{Type: TypeState, State: &st}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				conn.Close()
				return
			}
		}
	}()

	st := h.server.State()
	out <- Message{Type: TypeState, State: &st}

	for {
		var in Message
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if reply, ok := h.handleInbound(in); ok {
			select {
			case out <- reply:
			default:
			}
		}
	}
}

// handleInbound applies one client message and returns a direct reply if any
// Control changes are answered by the state push from the bridge subscription
func (h *handler) handleInbound(in Message) (Message, bool) {
	b := h.server.bridge

	switch in.Type {
	case TypePing:
		return Message{Type: TypePong, TS: in.TS}, true

	case TypeState:
		st := h.server.State()
		return Message{Type: TypeState, State: &st}, true

	case TypeParam:
		if in.Params == nil || in.Params.Empty() {
			return errorMessage("params are required"), true
		}
		in.Params.Apply(b)

	case TypeNoteOn:
		if msg := applyNote(b, in.Note, in.Velocity); msg != "" {
			return errorMessage(msg), true
		}

	case TypeNoteOff:
		zero := 0
		if msg := applyNote(b, in.Note, &zero); msg != "" {
			return errorMessage(msg), true
		}

	case TypeGate:
		if in.Open == nil {
			return errorMessage("open is required"), true
		}
		b.Gate(*in.Open)

	case TypePanic:
		b.Panic()

	default:
		return errorMessage("unsupported message type"), true
	}
	return Message{}, false
}

func errorMessage(msg string) Message {
	return Message{Type: TypeError, Error: msg}
}
