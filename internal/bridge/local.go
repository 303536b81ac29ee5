package bridge

import (
	"context"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
)

// SnapshotSource is the page side: anything that can produce the current
// in-memory claim. services.ClaimSession implements it.
type SnapshotSource interface {
	Snapshot() models.Snapshot
}

// LocalPeer answers requests from an in-process SnapshotSource. It only
// reads session memory and never touches the durable stores.
type LocalPeer struct {
	src SnapshotSource
}

func NewLocalPeer(src SnapshotSource) *LocalPeer {
	return &LocalPeer{src: src}
}

func (p *LocalPeer) Request(ctx context.Context, req Message) (Message, error) {
	// Buffered so the answering goroutine never blocks once the caller
	// has given up.
	reply := make(chan Message, 1)
	go func() {
		reply <- Answer(p.src, req)
	}()

	select {
	case m := <-reply:
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Answer builds the response to req from src. A nil source yields a
// response without data.
func Answer(src SnapshotSource, req Message) Message {
	resp := Message{Type: TypeResponse, ID: req.ID}
	if src == nil {
		return resp
	}
	data := src.Snapshot().ClaimData()
	resp.Data = &data
	return resp
}
