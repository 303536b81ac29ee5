// Package notify delivers user-facing notifications (accepted or rejected
// uploads, storage warnings, failed saves) from the claim session to
// whatever renders them: the CLI prints them, tests collect them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
)

// Kind identifies a notification type.
type Kind string

const (
	FileAccepted    Kind = "file.accepted"
	FileRejected    Kind = "file.rejected"
	FileRemoved     Kind = "file.removed"
	StorageDegraded Kind = "storage.degraded"
	SaveFailed      Kind = "save.failed"
	MigrationFailed Kind = "migration.failed"
	ExportDone      Kind = "export.done"
	Submitted       Kind = "claim.submitted"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message for the user.
type Notification struct {
	Kind    Kind
	Level   Level
	Message string
	Attrs   map[string]string
	Time    time.Time
}

// Notifier is what the session depends on.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Handler receives delivered notifications. Handlers are called
// synchronously and must not block.
type Handler func(Notification)

// DefaultWindow is how long a repeated notification is suppressed.
const DefaultWindow = 10 * time.Second

// DefaultSuppressedKinds are the storage warnings that can repeat in storms.
// Per-file notifications are never suppressed.
var DefaultSuppressedKinds = []Kind{StorageDegraded, SaveFailed}

// Bus fans notifications out to subscribers. Repeats of the same kind and
// message inside a window are suppressed for the suppressed kinds only.
type Bus struct {
	log      logging.Logger
	window   time.Duration
	now      func() time.Time
	suppress map[Kind]bool

	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
	lastSeen map[string]time.Time
}

type Option func(*Bus)

// WithWindow overrides DefaultWindow. Zero disables suppression.
func WithWindow(d time.Duration) Option {
	return func(b *Bus) { b.window = d }
}

// WithSuppressedKinds replaces DefaultSuppressedKinds.
func WithSuppressedKinds(kinds ...Kind) Option {
	return func(b *Bus) { b.suppress = kindSet(kinds) }
}

func kindSet(kinds []Kind) map[Kind]bool {
	m := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

func NewBus(log logging.Logger, opts ...Option) *Bus {
	if log == nil {
		log = logging.Discard()
	}
	b := &Bus{
		log:      log.With("module", "notify"),
		window:   DefaultWindow,
		now:      time.Now,
		suppress: kindSet(DefaultSuppressedKinds),
		handlers: make(map[int]Handler),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Notify(ctx context.Context, n Notification) {
	if n.Level == "" {
		n.Level = LevelInfo
	}

	b.mu.Lock()
	now := b.now()
	if n.Time.IsZero() {
		n.Time = now
	}
	if b.window > 0 && b.suppress[n.Kind] {
		key := string(n.Kind) + "\x00" + n.Message
		if last, ok := b.lastSeen[key]; ok && now.Sub(last) < b.window {
			b.mu.Unlock()
			b.log.Debug(ctx, "notification suppressed", "kind", n.Kind)
			return
		}
		for k, seen := range b.lastSeen {
			if now.Sub(seen) >= b.window {
				delete(b.lastSeen, k)
			}
		}
		b.lastSeen[key] = now
	}

	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	switch n.Level {
	case LevelError:
		b.log.Error(ctx, n.Message, "kind", n.Kind)
	case LevelWarning:
		b.log.Warn(ctx, n.Message, "kind", n.Kind)
	default:
		b.log.Info(ctx, n.Message, "kind", n.Kind)
	}

	for _, h := range handlers {
		h(n)
	}
}

// Recorder is a Notifier that keeps everything it is given.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Kinds returns the kinds recorded so far, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.items))
	for i, n := range r.items {
		out[i] = n.Kind
	}
	return out
}

// Count returns how many notifications of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == k {
			n++
		}
	}
	return n
}
