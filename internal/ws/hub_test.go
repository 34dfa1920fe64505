package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasktracker/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", userID.String())
	}, Handler(hub))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForConnection(t *testing.T, hub *Hub, userID uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.IsConnected(userID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("User %s never registered on the hub", userID)
}

func TestHubPushReachesClient(t *testing.T) {
	hub := NewHub()
	userID := uuid.Must(uuid.NewV4())
	conn := dialTestHub(t, hub, userID)
	waitForConnection(t, hub, userID)

	notification := models.Notification{
		Type:      models.NotificationAssigned,
		TaskID:    uuid.Must(uuid.NewV4()),
		TaskTitle: "Deploy",
		Message:   "Alice assigned you a new task: Deploy",
		CreatedAt: time.Now(),
	}
	if err := hub.Push(userID, notification); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var got models.Notification
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal pushed notification: %v", err)
	}
	if got.Type != models.NotificationAssigned || got.Message != notification.Message {
		t.Errorf("Got %+v, want %+v", got, notification)
	}
}

func TestHubPushToOfflineUserIsNoOp(t *testing.T) {
	hub := NewHub()

	if err := hub.Push(uuid.Must(uuid.NewV4()), "anything"); err != nil {
		t.Errorf("Push to an offline user should be a no-op, got %v", err)
	}
}

func TestHubDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	userID := uuid.Must(uuid.NewV4())
	conn := dialTestHub(t, hub, userID)
	waitForConnection(t, hub, userID)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !hub.IsConnected(userID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("User should be unregistered after the connection closes")
}

func TestHubReplacesExistingConnection(t *testing.T) {
	hub := NewHub()
	userID := uuid.Must(uuid.NewV4())

	first := dialTestHub(t, hub, userID)
	waitForConnection(t, hub, userID)

	dialTestHub(t, hub, userID)

	// Registering the replacement closes the first connection.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("First connection should have been closed by the replacement")
	}

	waitForConnection(t, hub, userID)
	if count := hub.ConnectionCount(); count != 1 {
		t.Errorf("Expected 1 connection for the user, got %d", count)
	}
}
