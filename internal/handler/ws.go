package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 8 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// frame is the JSON envelope exchanged over every socket.
type frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`

	Clock     string `json:"clock,omitempty"`
	Remaining int    `json:"remaining,omitempty"`

	Online bool `json:"online,omitempty"`
	Typing bool `json:"typing,omitempty"`

	Days    []dayFrame   `json:"days,omitempty"`
	Entries []inboxFrame `json:"entries,omitempty"`
}

type messageFrame struct {
	Text string `json:"text"`
	Time string `json:"time"`
	Mine bool   `json:"mine"`
}

type dayFrame struct {
	Label    string         `json:"label"`
	Messages []messageFrame `json:"messages"`
}

type inboxFrame struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Unread int    `json:"unread"`
	Online bool   `json:"online"`
	Typing bool   `json:"typing"`
}

// wsConn serializes writes to a websocket connection.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func upgrade(w http.ResponseWriter, r *http.Request) (*wsConn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxFrameSize)
	return &wsConn{ws: ws}, nil
}

func (c *wsConn) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

func (c *wsConn) sendError(msg string) {
	if err := c.send(frame{Type: "error", Message: msg}); err != nil {
		slog.Debug("websocket write failed", "error", err)
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = c.ws.Close()
}

// readLoop delivers client frames to handle until the peer goes away, then
// calls cancel. Malformed frames are dropped.
func (c *wsConn) readLoop(ctx context.Context, cancel context.CancelFunc, handle func(frame)) {
	defer cancel()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Debug("dropping malformed frame", "error", err)
			continue
		}
		if handle != nil {
			handle(f)
		}
	}
}
