package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeongen/internal/server"
)

// ErrGeneration wraps an error frame sent by the service.
var ErrGeneration = errors.New("client: generation failed")

// Client talks to a running generation service over one WebSocket.
// Requests on one client are serialised.
type Client struct {
	base string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to the service at address, given as host:port or as an
// http(s) base URL.
func Dial(ctx context.Context, address string) (*Client, error) {
	base, err := baseURL(address)
	if err != nil {
		return nil, err
	}
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Client{base: base, conn: conn}, nil
}

func baseURL(address string) (string, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid address %q: scheme must be http or https", address)
	}
	return strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// Generate sends req and blocks until the service answers with a result or
// an error. onProgress, if set, sees every progress frame in order.
func (c *Client) Generate(ctx context.Context, req server.Request, onProgress func(server.Progress)) (*server.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		// Unblocks the read below.
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	for {
		var m server.Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}
		switch m.Type {
		case server.MessageProgress:
			if onProgress != nil && m.Event != nil {
				onProgress(*m.Event)
			}
		case server.MessageError:
			return nil, fmt.Errorf("%w: %s", ErrGeneration, m.Error)
		case server.MessageResult:
			return &m, nil
		}
	}
}

// Catalog fetches the colour legend.
func (c *Client) Catalog(ctx context.Context) ([]server.LegendEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/catalog", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	var legend []server.LegendEntry
	if err := json.NewDecoder(resp.Body).Decode(&legend); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return legend, nil
}

// Close ends the session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
