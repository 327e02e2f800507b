package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firechat/pkg/errors"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	joined   []string
	disposed []string
	sent     []string
}

func (d *recordingDispatcher) JoinChat(ctx context.Context, client *Client, chatID string) (func(), error) {
	if chatID == "forbidden" {
		return nil, errors.PermissionDenied("Not a member of this chat", nil)
	}
	d.mu.Lock()
	d.joined = append(d.joined, chatID)
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		d.disposed = append(d.disposed, chatID)
		d.mu.Unlock()
	}, nil
}

func (d *recordingDispatcher) SendText(ctx context.Context, client *Client, chatID, text string) error {
	d.mu.Lock()
	d.sent = append(d.sent, chatID+":"+text)
	d.mu.Unlock()
	return nil
}

func (d *recordingDispatcher) MarkRead(ctx context.Context, client *Client, chatID string) error {
	return nil
}

func (d *recordingDispatcher) snapshot() ([]string, []string, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.joined...), append([]string(nil), d.disposed...), append([]string(nil), d.sent...)
}

func startHub(t *testing.T) (*Manager, *recordingDispatcher, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dispatcher := &recordingDispatcher{}
	manager := NewManager(dispatcher)
	manager.Start(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := NewClient(ctx, "alice", conn)
		manager.Register <- client
		go client.WritePump()
		go client.ReadPump(manager)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return manager, dispatcher, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestPingPong(t *testing.T) {
	_, _, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readFrame(t, conn).Type)
}

func TestJoinSendLeave(t *testing.T) {
	_, dispatcher, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeJoinChat, ChatID: "c1"}))
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeSendMessage, ChatID: "c1", Data: json.RawMessage(`{"text":"hi"}`)}))
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeLeaveChat, ChatID: "c1"}))

	assert.Eventually(t, func() bool {
		joined, disposed, sent := dispatcher.snapshot()
		return len(joined) == 1 && len(disposed) == 1 && len(sent) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, _, sent := dispatcher.snapshot()
	assert.Equal(t, []string{"c1:hi"}, sent)
}

func TestJoinErrorIsReported(t *testing.T) {
	_, _, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeJoinChat, ChatID: "forbidden"}))
	frame := readFrame(t, conn)
	assert.Equal(t, MessageTypeError, frame.Type)

	var payload ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, errors.CodePermissionDenied, payload.Code)
}

func TestPublishReachesUser(t *testing.T) {
	manager, _, conn := startHub(t)

	require.Eventually(t, func() bool { return manager.ConnectedUsers() == 1 }, 2*time.Second, 10*time.Millisecond)
	manager.Publish("alice", MessageTypeUnreadTotal, "", map[string]int{"total": 3})

	frame := readFrame(t, conn)
	assert.Equal(t, MessageTypeUnreadTotal, frame.Type)
	assert.JSONEq(t, `{"total":3}`, string(frame.Data))
}

func TestDisconnectDisposesRooms(t *testing.T) {
	manager, dispatcher, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeJoinChat, ChatID: "c1"}))
	require.Eventually(t, func() bool {
		joined, _, _ := dispatcher.snapshot()
		return len(joined) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool {
		_, disposed, _ := dispatcher.snapshot()
		return len(disposed) == 1 && manager.ConnectedUsers() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJoinAfterCloseDisposesImmediately(t *testing.T) {
	client := NewClient(context.Background(), "alice@example.com", nil)

	disposed := 0
	client.join("c1", func() { disposed++ })
	assert.True(t, client.joined("c1"))

	client.close()
	assert.Equal(t, 1, disposed)
	assert.False(t, client.joined("c1"))

	client.join("c2", func() { disposed++ })
	assert.Equal(t, 2, disposed)
	assert.False(t, client.joined("c2"))
}
