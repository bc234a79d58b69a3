package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventide/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // feed is token-gated; origin is not used for auth
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Authorizer validates a feed token and reports the caller id and organizer flag.
type Authorizer func(token string) (userID string, isOrganizer bool, err error)

// Client is a single organizer dashboard watching one event's entry feed.
type Client struct {
	ID      string
	EventID string
	UserID  string
	hub     *Hub
	conn    *websocket.Conn
	send    chan WSMessage
	logger  *zap.Logger
}

// EventExists reports whether an event id is known; nil skips the check.
type EventExists func(c *gin.Context, eventID string) bool

// ServeWs handles GET /ws?event_id=&token= and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, authorize Authorizer, exists EventExists) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID := c.Query("event_id")
		token := c.Query("token")
		if eventID == "" || token == "" {
			response.BadRequest(c, "event_id and token required")
			return
		}
		userID, organizer, err := authorize(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		if !organizer {
			response.Forbidden(c, "organizer account required")
			return
		}
		if exists != nil && !exists(c, eventID) {
			response.NotFound(c, "event not found")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:      uuid.New().String(),
			EventID: eventID,
			UserID:  userID,
			hub:     hub,
			conn:    conn,
			send:    make(chan WSMessage, 256),
			logger:  logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump keeps the connection alive and answers viewer-count requests.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if msg.Event == "viewers" {
			data, _ := json.Marshal(map[string]int{"count": c.hub.Viewers(c.EventID)})
			select {
			case c.send <- WSMessage{Event: "viewers", Data: data}:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
