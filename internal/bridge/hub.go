package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/google/uuid"
)

// Message types.
const (
	TypeRequest  = "REQUEST_CLAIM_DATA"
	TypeResponse = "CLAIM_DATA_RESPONSE"
)

// Message is the envelope exchanged with page contexts.
type Message struct {
	Type string            `json:"type"`
	ID   string            `json:"id,omitempty"`
	Data *models.ClaimData `json:"data,omitempty"`
}

var (
	ErrNoClient = errors.New("no-client")
	ErrTimeout  = errors.New("timeout")
	ErrNoData   = errors.New("no-data")
)

// DefaultTimeout bounds how long Request waits for a page context.
const DefaultTimeout = 1500 * time.Millisecond

// Peer is a connected page context. Request must return once ctx is done
// and must not keep any reference to the exchange afterwards.
type Peer interface {
	Request(ctx context.Context, req Message) (Message, error)
}

// Hub tracks connected page contexts and routes requests to them.
type Hub struct {
	log     logging.Logger
	timeout time.Duration

	mu     sync.Mutex
	nextID uint64
	peers  []registered
}

type registered struct {
	id   uint64
	peer Peer
}

func NewHub(log logging.Logger, timeout time.Duration) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Hub{log: log.With("module", "bridge"), timeout: timeout}
}

// Register adds p and returns the function that removes it again.
func (h *Hub) Register(p Peer) (unregister func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.peers = append(h.peers, registered{id: id, peer: p})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, r := range h.peers {
				if r.id == id {
					h.peers = append(h.peers[:i], h.peers[i+1:]...)
					return
				}
			}
		})
	}
}

// Peers returns the number of connected page contexts.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) latest() Peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.peers) == 0 {
		return nil
	}
	return h.peers[len(h.peers)-1].peer
}

// Request asks the most recently connected page context for the claim.
// It fails with ErrNoClient, ErrTimeout or ErrNoData; a cancelled ctx is
// returned as is.
func (h *Hub) Request(ctx context.Context) (*models.ClaimData, error) {
	p := h.latest()
	if p == nil {
		return nil, ErrNoClient
	}

	id := uuid.NewString()
	rctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := p.Request(rctx, Message{Type: TypeRequest, ID: id})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn(ctx, "page context did not answer", "request", id, "timeout", h.timeout)
		return nil, ErrTimeout
	case errors.Is(err, ErrNoClient):
		return nil, ErrNoClient
	default:
		h.log.Warn(ctx, "bridge request failed", "request", id, "error", err)
		return nil, ErrNoData
	}

	if resp.Type != TypeResponse || resp.ID != id || resp.Data == nil {
		return nil, ErrNoData
	}
	return resp.Data, nil
}
