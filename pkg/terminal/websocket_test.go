package terminal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/basicterm/pkg/auth"
	"github.com/antibyte/basicterm/pkg/shared"
)

func dialTestServer(t *testing.T, h *TerminalHandler, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	token, err := auth.GenerateGuestToken(sessionID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendInput(t *testing.T, conn *websocket.Conn, content string) {
	t.Helper()
	frame, _ := json.Marshal(ClientMessage{Type: "input", Content: content})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// readUntil reads frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want shared.MessageType) shared.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed while waiting for type %d: %v", want, err)
		}
		var msg shared.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid frame %q: %v", data, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

// TestWebSocketSession drives a full session over a real connection.
func TestWebSocketSession(t *testing.T) {
	h := NewTerminalHandler(nil)
	conn := dialTestServer(t, h, "guest-ws-test")

	// Greeting: mode, session handover, banner, prompt.
	if msg := readUntil(t, conn, shared.MessageTypeMode); msg.Mode != "basic" {
		t.Errorf("mode frame %+v", msg)
	}
	if msg := readUntil(t, conn, shared.MessageTypeSession); msg.SessionID != "guest-ws-test" {
		t.Errorf("session frame %+v", msg)
	}
	if msg := readUntil(t, conn, shared.MessageTypeText); !strings.Contains(msg.Content, "Ready!") {
		t.Errorf("banner frame %+v", msg)
	}
	readUntil(t, conn, shared.MessageTypePrompt)

	// Immediate statement round trip.
	sendInput(t, conn, "PRINT 2 + 3 * 4")
	if msg := readUntil(t, conn, shared.MessageTypeText); msg.Content != "14\n" {
		t.Errorf("PRINT output %q, want %q", msg.Content, "14\n")
	}
	readUntil(t, conn, shared.MessageTypePrompt)

	// Suspended INPUT across frames.
	sendInput(t, conn, "10 INPUT A")
	readUntil(t, conn, shared.MessageTypePrompt)
	sendInput(t, conn, "20 PRINT A * 2")
	readUntil(t, conn, shared.MessageTypePrompt)
	sendInput(t, conn, "RUN")
	if msg := readUntil(t, conn, shared.MessageTypePrompt); msg.PromptSymbol != "A? " {
		t.Errorf("INPUT prompt %+v", msg)
	}
	sendInput(t, conn, "21")
	if msg := readUntil(t, conn, shared.MessageTypeText); msg.Content != "42\n" {
		t.Errorf("program output %q, want %q", msg.Content, "42\n")
	}

	// Runtime errors arrive as error frames.
	sendInput(t, conn, "PRINT 1 / 0")
	if msg := readUntil(t, conn, shared.MessageTypeError); !strings.Contains(msg.Content, "DIVISION BY ZERO") {
		t.Errorf("error frame %+v", msg)
	}

	if h.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", h.SessionCount())
	}
}

// TestWebSocketInterruptDuringInput breaks out of a suspended INPUT with an
// interrupt frame and verifies the session accepts commands again.
func TestWebSocketInterruptDuringInput(t *testing.T) {
	h := NewTerminalHandler(nil)
	conn := dialTestServer(t, h, "guest-interrupt-test")
	readUntil(t, conn, shared.MessageTypePrompt)

	sendInput(t, conn, "10 INPUT A")
	readUntil(t, conn, shared.MessageTypePrompt)
	sendInput(t, conn, "RUN")
	if msg := readUntil(t, conn, shared.MessageTypePrompt); msg.PromptSymbol != "A? " {
		t.Fatalf("INPUT prompt %+v", msg)
	}

	frame, _ := json.Marshal(ClientMessage{Type: "interrupt"})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if msg := readUntil(t, conn, shared.MessageTypeError); !strings.Contains(msg.Content, "INTERRUPTED") {
		t.Errorf("error frame %+v", msg)
	}
	if msg := readUntil(t, conn, shared.MessageTypePrompt); msg.PromptSymbol != "> " {
		t.Errorf("prompt after interrupt %+v", msg)
	}

	// The abandoned INPUT must not swallow the next line.
	sendInput(t, conn, "PRINT 5")
	if msg := readUntil(t, conn, shared.MessageTypeText); msg.Content != "5\n" {
		t.Errorf("output after interrupt %q, want %q", msg.Content, "5\n")
	}
}

// TestSendToDroppedClient parks a send on a full buffer and drops the client
// underneath it. The send must fail cleanly instead of panicking.
func TestSendToDroppedClient(t *testing.T) {
	cm := NewClientManager()
	client := &Client{
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	cm.AddClient("stale", client)

	// Fill the buffer so the next send parks in the select.
	if err := cm.SendToClient("stale", shared.Message{Type: shared.MessageTypeText}); err != nil {
		t.Fatalf("buffered send failed: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		result <- cm.SendToClient("stale", shared.Message{Type: shared.MessageTypeText})
	}()

	time.Sleep(20 * time.Millisecond)
	cm.RemoveClient("stale", client)

	select {
	case err := <-result:
		if err == nil {
			t.Error("send to a removed client must report an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after the client was removed")
	}

	// A second removal and a shutdown race must both be harmless.
	cm.RemoveClient("stale", client)
	client.shutdown()
}

// TestWebSocketRequiresToken rejects unauthenticated upgrades.
func TestWebSocketRequiresToken(t *testing.T) {
	h := NewTerminalHandler(nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
}
