package terminal

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/basicterm/pkg/logger"
	"github.com/antibyte/basicterm/pkg/shared"
)

// RateLimitInfo tracks connection attempts per IP.
type RateLimitInfo struct {
	requests  int
	lastReset time.Time
}

const (
	rateLimitWindow      = time.Minute
	maxRequestsPerWindow = 30
)

// ClientManager tracks the websocket connection per session ID. A session
// can outlive its connection; the manager only knows who is reachable
// right now.
type ClientManager struct {
	clients    map[string]*Client        // sessionID -> Client
	rateLimits map[string]*RateLimitInfo // ipAddress -> RateLimitInfo
	mu         sync.RWMutex
}

// NewClientManager creates an empty client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*RateLimitInfo),
	}
}

// AddClient registers the connection for a session, replacing a stale one.
func (cm *ClientManager) AddClient(sessionID string, client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if old, exists := cm.clients[sessionID]; exists && old != client {
		old.shutdown()
	}
	cm.clients[sessionID] = client
	logger.WebSocketDebug("client added for session %s", sessionID)
}

// RemoveClient drops the connection for a session. The session itself is
// kept by the terminal handler for reconnects.
func (cm *ClientManager) RemoveClient(sessionID string, client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	current, exists := cm.clients[sessionID]
	if !exists || current != client {
		// A reconnect already replaced this client.
		return
	}
	client.shutdown()
	delete(cm.clients, sessionID)
	logger.WebSocketDebug("client removed for session %s", sessionID)
}

// SendToClient queues a message for one session's connection.
func (cm *ClientManager) SendToClient(sessionID string, message shared.Message) error {
	cm.mu.RLock()
	client, exists := cm.clients[sessionID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("client not found for session %s", sessionID)
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	// The done channel keeps a send that is parked on a full buffer from
	// outliving the connection it belongs to.
	select {
	case client.send <- jsonData:
		return nil
	case <-client.done:
		return fmt.Errorf("connection closed for session %s", sessionID)
	case <-time.After(time.Second):
		return fmt.Errorf("send timeout for session %s", sessionID)
	}
}

// ClientCount returns the number of connected clients.
func (cm *ClientManager) ClientCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// HasClient reports whether the session has a live connection.
func (cm *ClientManager) HasClient(sessionID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.clients[sessionID]
	return exists
}

// CheckRateLimit counts a connection attempt from the given IP and rejects
// it when the per-minute budget is used up.
func (cm *ClientManager) CheckRateLimit(ipAddress string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := time.Now()
	info, exists := cm.rateLimits[ipAddress]
	if !exists || now.Sub(info.lastReset) > rateLimitWindow {
		cm.rateLimits[ipAddress] = &RateLimitInfo{requests: 1, lastReset: now}
		return nil
	}

	info.requests++
	if info.requests > maxRequestsPerWindow {
		return fmt.Errorf("rate limit exceeded for %s", ipAddress)
	}
	return nil
}
