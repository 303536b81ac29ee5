package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// wsPeer is a page context connected over a WebSocket.
type wsPeer struct {
	conn *websocket.Conn
	log  logging.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Message
	closed  chan struct{}
}

func newWSPeer(conn *websocket.Conn, log logging.Logger) *wsPeer {
	return &wsPeer{
		conn:    conn,
		log:     log,
		pending: make(map[string]chan Message),
		closed:  make(chan struct{}),
	}
}

func (p *wsPeer) Request(ctx context.Context, req Message) (Message, error) {
	reply := make(chan Message, 1)

	p.mu.Lock()
	p.pending[req.ID] = reply
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	if err := p.write(req); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrNoClient, err)
	}

	select {
	case m := <-reply:
		return m, nil
	case <-p.closed:
		return Message{}, ErrNoClient
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (p *wsPeer) write(m Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(m)
}

// readLoop delivers responses to waiting requests until the connection
// fails.
func (p *wsPeer) readLoop(ctx context.Context) {
	defer close(p.closed)

	for {
		var m Message
		if err := p.conn.ReadJSON(&m); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				p.log.Debug(ctx, "page context disconnected", "error", err)
			}
			return
		}
		if m.Type != TypeResponse {
			continue
		}

		p.mu.Lock()
		reply, ok := p.pending[m.ID]
		p.mu.Unlock()
		if !ok {
			p.log.Debug(ctx, "late or unknown bridge response", "id", m.ID)
			continue
		}
		select {
		case reply <- m:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and registers the connection as a page
// context until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	p := newWSPeer(conn, h.log)
	unregister := h.Register(p)
	defer unregister()

	h.log.Info(r.Context(), "page context connected", "remote", r.RemoteAddr)
	p.readLoop(r.Context())
	h.log.Info(r.Context(), "page context disconnected", "remote", r.RemoteAddr)
}
