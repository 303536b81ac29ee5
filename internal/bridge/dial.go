package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/gorilla/websocket"
)

// Client is a page context connected to a remote hub.
type Client struct {
	conn *websocket.Conn
	src  SnapshotSource
	log  logging.Logger

	writeMu sync.Mutex
	// stopped is closed once the shutdown watcher of Serve has returned.
	stopped chan struct{}
}

// Dial connects src to the hub listening at url (ws://host/bridge/ws).
// Call Serve to start answering requests.
func Dial(ctx context.Context, url string, src SnapshotSource, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Discard()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect bridge %s: %w", url, err)
	}
	return &Client{conn: conn, src: src, log: log.With("module", "bridge_client"), stopped: make(chan struct{})}, nil
}

// Serve answers requests until ctx is done or the connection drops. Each
// request is answered on its own goroutine.
func (c *Client) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(c.stopped)
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			c.writeMu.Unlock()
		case <-done:
		}
		_ = c.conn.Close()
	}()

	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge connection lost: %w", err)
		}
		if m.Type != TypeRequest {
			continue
		}
		go c.answer(ctx, m)
	}
}

func (c *Client) answer(ctx context.Context, req Message) {
	resp := Answer(c.src, req)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(resp); err != nil {
		c.log.Warn(ctx, "failed to answer bridge request", "id", req.ID, "error", err)
	}
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
