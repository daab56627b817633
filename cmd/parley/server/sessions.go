package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/models"
)

// sweepInterval is how often the registry looks for idle sessions.
const sweepInterval = time.Minute

// managedSession pairs session state with the lock that serializes requests
// touching it. The pipeline mutates state in place, so two requests for the
// same session must never run concurrently.
type managedSession struct {
	mu    sync.Mutex
	state *models.SessionState
}

// Registry owns every live session. Sessions expire after sitting idle for
// the configured TTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession
	ttl      time.Duration
	logger   zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a session registry. A positive ttl starts a background
// sweep that drops idle sessions; Close stops it.
func NewRegistry(ttl time.Duration, logger zerolog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*managedSession),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go r.sweepRoutine()
	}
	return r
}

// GetOrCreate returns the session for id with its lock held, creating the
// session (and allocating an id when none is given) as needed. The caller
// must invoke release when done with the state.
func (r *Registry) GetOrCreate(id string) (*models.SessionState, func()) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	entry, ok := r.sessions[id]
	if !ok {
		entry = &managedSession{state: models.NewSessionState(id)}
		r.sessions[id] = entry
		r.logger.Debug().Str("session_id", id).Msg("Session created")
	}
	r.mu.Unlock()

	entry.mu.Lock()
	return entry.state, entry.mu.Unlock
}

// Lookup returns the session for id with its lock held, or ok=false when the
// session does not exist. The caller must invoke release when ok.
func (r *Registry) Lookup(id string) (*models.SessionState, func(), bool) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	entry.mu.Lock()
	return entry.state, entry.mu.Unlock, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the idle sweep.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// sweepRoutine drops idle sessions until Close is called.
func (r *Registry) sweepRoutine() {
	interval := sweepInterval
	if r.ttl < interval {
		interval = r.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if removed := r.removeExpired(time.Now()); removed > 0 {
				r.logger.Info().Int("removed", removed).Int("remaining", r.Len()).Msg("Expired idle sessions")
			}
		}
	}
}

// removeExpired drops sessions idle past the TTL. Sessions currently serving
// a request hold their lock and are skipped until the next sweep.
func (r *Registry) removeExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		idle := now.Sub(entry.state.LastActivityAt)
		entry.mu.Unlock()

		if idle > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
