package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"firechat/pkg/logger"
)

const sendBuffer = 64

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	rooms  map[string]func()
	closed bool
}

// NewClient wraps an upgraded connection. The client context ends when the
// connection is unregistered.
func NewClient(parent context.Context, userID string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(parent)
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[string]func()),
	}
}

func (c *Client) Context() context.Context {
	return c.ctx
}

// trySend queues a frame unless the connection is closed or backed up.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.cancel()
	c.leaveAll()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) joined(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[chatID]
	return ok
}

// join records the room's dispose func. A client that is already closed
// releases the subscription at once.
func (c *Client) join(chatID string, dispose func()) {
	c.mu.Lock()
	if c.closed || c.ctx.Err() != nil {
		c.mu.Unlock()
		if dispose != nil {
			dispose()
		}
		return
	}
	prev := c.rooms[chatID]
	c.rooms[chatID] = dispose
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (c *Client) leave(chatID string) {
	c.mu.Lock()
	dispose, ok := c.rooms[chatID]
	delete(c.rooms, chatID)
	c.mu.Unlock()
	if ok && dispose != nil {
		dispose()
	}
}

func (c *Client) leaveAll() {
	c.mu.Lock()
	rooms := c.rooms
	c.rooms = make(map[string]func())
	c.mu.Unlock()
	for _, dispose := range rooms {
		if dispose != nil {
			dispose()
		}
	}
}

// Dispatcher carries client requests into the chat layer.
type Dispatcher interface {
	JoinChat(ctx context.Context, client *Client, chatID string) (dispose func(), err error)
	SendText(ctx context.Context, client *Client, chatID, text string) error
	MarkRead(ctx context.Context, client *Client, chatID string) error
}

// Manager manages all active WebSocket connections
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	dispatcher Dispatcher
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager(dispatcher Dispatcher) *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				set, ok := m.clients[client.UserID]
				if !ok {
					set = make(map[*Client]struct{})
					m.clients[client.UserID] = set
				}
				set[client] = struct{}{}
				m.mutex.Unlock()
				logger.Debug("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Debug("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				close(m.done)
				m.mutex.Lock()
				all := m.clients
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				for _, set := range all {
					for client := range set {
						client.close()
					}
				}
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	set, ok := m.clients[client.UserID]
	_, present := set[client]
	if ok && present {
		delete(set, client)
		if len(set) == 0 {
			delete(m.clients, client.UserID)
		}
	}
	m.mutex.Unlock()

	if present {
		client.close()
	}
}

// SendToUser delivers a message to every connection of the user. Slow
// connections drop the message rather than block the caller.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients[userID] {
		if !client.trySend(message) {
			logger.Warn("WebSocket: dropping message for client %s", userID)
		}
	}
}

// ConnectedUsers returns how many distinct users hold a connection.
func (m *Manager) ConnectedUsers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Error("WebSocket write error for %s: %v", c.UserID, err)
			return
		}
	}
}
