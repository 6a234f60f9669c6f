package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// session wraps one WebSocket connection. Requests are served one at a time;
// writes are serialised so progress frames never interleave.
type session struct {
	conn *websocket.Conn
	ip   string
	mu   sync.Mutex
}

func newSession(conn *websocket.Conn, ip string, maxMessageSize int64) *session {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &session{conn: conn, ip: ip}
}

// readRequest blocks for the next request. A frame that is not a valid
// request returns ErrBadRequest and leaves the connection usable; any other
// error means the connection is gone.
func (c *session) readRequest() (*Request, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return &req, nil
}

func (c *session) send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(m)
}

func (c *session) sendError(err error) error {
	return c.send(Message{Type: MessageError, Error: err.Error()})
}

func (c *session) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
