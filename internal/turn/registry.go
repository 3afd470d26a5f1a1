package turn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"twentyq/internal/game"
)

var (
	ErrSessionNotFound = errors.New("turn: session not found")
	// ErrSessionBusy means a turn was submitted while a prior turn's
	// oracle consultation is still outstanding. Sessions are strictly
	// linear; the caller should wait for the pending turn.
	ErrSessionBusy = errors.New("turn: a turn is already in flight for this session")
)

type managed struct {
	sess *game.Session
	// busy serializes turns within the session. TryLock instead of Lock:
	// a concurrent submit is a client error, not something to queue.
	busy       sync.Mutex
	lastActive time.Time
}

// Registry owns the live sessions. Sessions are fully independent of
// each other; the registry only guards its own map.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*managed
	idle     time.Duration
	log      *zap.Logger
}

func NewRegistry(idle time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*managed),
		idle:     idle,
		log:      log,
	}
}

// Create starts a fresh idle session for the given owner token.
func (r *Registry) Create(owner string) *game.Session {
	sess := game.NewSession(uuid.NewString(), owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = &managed{sess: sess, lastActive: time.Now()}
	return sess
}

// Acquire locks a session for one turn. The returned release func must
// be called when the turn completes (success or failure).
func (r *Registry) Acquire(id string) (*game.Session, func(), error) {
	r.mu.Lock()
	m, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	if !m.busy.TryLock() {
		return nil, nil, ErrSessionBusy
	}
	release := func() {
		r.mu.Lock()
		m.lastActive = time.Now()
		r.mu.Unlock()
		m.busy.Unlock()
	}
	return m.sess, release, nil
}

// Remove drops a session from the registry (after it finished or was
// abandoned). The session value stays valid for the caller.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep abandons sessions idle past the configured timeout and returns
// them for finalization. A session mid-turn is never swept: its
// lastActive is refreshed on release and the busy lock is held.
func (r *Registry) Sweep() []*game.Session {
	if r.idle <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-r.idle)

	r.mu.Lock()
	var stale []*managed
	for id, m := range r.sessions {
		if m.lastActive.Before(cutoff) && m.busy.TryLock() {
			stale = append(stale, m)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	out := make([]*game.Session, 0, len(stale))
	for _, m := range stale {
		m.busy.Unlock()
		out = append(out, m.sess)
	}
	return out
}

// Run sweeps periodically until the context is canceled, handing stale
// sessions to onAbandon.
func (r *Registry) Run(ctx context.Context, every time.Duration, onAbandon func(context.Context, *game.Session)) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sess := range r.Sweep() {
				r.log.Info("reaping idle session", zap.String("session", sess.ID))
				if onAbandon != nil {
					onAbandon(ctx, sess)
				}
			}
		}
	}
}
