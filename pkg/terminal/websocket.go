package terminal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/basicterm/pkg/auth"
	"github.com/antibyte/basicterm/pkg/basic"
	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
	"github.com/antibyte/basicterm/pkg/shared"
)

var errTooManySessions = errors.New("maximum number of sessions reached")

// Websocket timing is read from the [Network] configuration section.

func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64) * 1024)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The JWT in the request is the access control; origins vary in
		// development setups.
		return true
	},
}

// Client is one live websocket connection. The send channel is never
// closed; shutdown signals the pumps and any in-flight sender through the
// done channel instead, so a send racing a disconnect cannot panic.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	done     chan struct{}
	doneOnce sync.Once
}

// shutdown marks the connection as finished. Safe to call more than once.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ClientMessage is a frame received from the frontend.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}

// HandleWebSocket upgrades the connection and attaches it to the caller's
// BASIC session. The JWT travels as a query parameter because browsers
// cannot set websocket headers.
func (h *TerminalHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := clientIP(r)

	if err := h.manager.CheckRateLimit(ipAddress); err != nil {
		logger.WebSocketWarn("connection rejected: %v", err)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	tokenString, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		logger.WebSocketWarn("websocket request without token from %s", ipAddress)
		http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
		return
	}
	identity, err := auth.ValidateToken(tokenString)
	if err != nil {
		logger.WebSocketWarn("websocket request with invalid token from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	session, err := h.Session(identity.SessionID, identity.Username)
	if err != nil {
		logger.WebSocketWarn("session setup failed for %s: %v", identity.SessionID, err)
		http.Error(w, "Server overloaded", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WebSocketError("upgrade failed for %s: %v", ipAddress, err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, configuration.GetInt("Network", "max_channel_buffer", 1000)),
		done: make(chan struct{}),
	}
	h.manager.AddClient(session.ID, client)
	logger.WebSocketInfo("session %s connected from %s", session.ID, ipAddress)

	go client.writePump()
	h.greet(session)
	h.readPump(session, client)
}

// greet sends the initial frames a fresh or reconnected client needs.
func (h *TerminalHandler) greet(session *Session) {
	h.send(session.ID, shared.Message{Type: shared.MessageTypeMode, Mode: "basic"})
	h.send(session.ID, shared.Message{Type: shared.MessageTypeSession, SessionID: session.ID})
	h.send(session.ID, shared.Message{Type: shared.MessageTypeText, Content: "Ready!\n", NoNewline: true})
	if session.Interp.State() == basic.StateAwaitingInput {
		// A reconnect lands in the middle of a suspended INPUT; the next
		// submitted line still feeds that INPUT.
		logger.WebSocketDebug("session %s reconnected while awaiting INPUT", session.ID)
		return
	}
	h.sendReadyPrompt(session.ID)
}

// readPump consumes frames until the connection dies. Interrupts are
// handled inline so they work while the runner executes a program.
func (h *TerminalHandler) readPump(session *Session, client *Client) {
	defer func() {
		h.manager.RemoveClient(session.ID, client)
		client.conn.Close()
		logger.WebSocketInfo("session %s disconnected", session.ID)
	}()

	client.conn.SetReadLimit(getMaxMessageSize())
	client.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WebSocketWarn("session %s read error: %v", session.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WebSocketWarn("session %s sent invalid JSON: %v", session.ID, err)
			continue
		}

		switch msg.Type {
		case "input":
			if !session.Submit(msg.Content) {
				h.send(session.ID, shared.Message{
					Type:    shared.MessageTypeError,
					Content: "INPUT QUEUE FULL",
				})
			}
		case "interrupt":
			session.Interp.Interrupt()
			// Interrupt only stops a running program; a suspended INPUT
			// never polls the run context and must be abandoned instead.
			if session.Interp.State() == basic.StateAwaitingInput {
				session.Interp.Abort()
				h.send(session.ID, shared.Message{
					Type:    shared.MessageTypeError,
					Content: "INTERRUPTED",
				})
				h.sendReadyPrompt(session.ID)
			}
		case "ping":
			// Application-level keepalive from older frontends.
		default:
			logger.WebSocketDebug("session %s sent unknown message type %q", session.ID, msg.Type)
		}
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
