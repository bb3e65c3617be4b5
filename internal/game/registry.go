package game

import (
	"sync"

	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/mbeaufort/pitchrally/internal/validation"
)

// Registry supervises one session per active match. Sessions are created
// on first use and removed when their match completes.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	repo        repository.FullRepository
	pipeline    *validation.Pipeline
	emitter     Emitter
	log         logger.Logger
	turnSeconds int
}

// NewRegistry creates a session registry. turnSeconds is the client
// countdown announced with each rally; zero selects the default.
func NewRegistry(repo repository.FullRepository, pipeline *validation.Pipeline, emitter Emitter, log logger.Logger, turnSeconds int) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		repo:        repo,
		pipeline:    pipeline,
		emitter:     emitter,
		log:         log,
		turnSeconds: turnSeconds,
	}
}

// Dispatch routes a command to the match's session, spawning it on
// first use.
func (r *Registry) Dispatch(matchID string, cmd Command) {
	r.session(matchID).Enqueue(cmd)
}

// Notify routes a command only if the match already has a live
// session. Used for disconnects, which must not resurrect sessions of
// completed matches.
func (r *Registry) Notify(matchID string, cmd Command) {
	r.mu.Lock()
	s, ok := r.sessions[matchID]
	r.mu.Unlock()
	if ok {
		s.Enqueue(cmd)
	}
}

func (r *Registry) session(matchID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[matchID]; ok {
		return s
	}
	s := newSession(matchID, r.repo, r.pipeline, r.emitter, r.log, r.turnSeconds, func() {
		r.remove(matchID)
	})
	r.sessions[matchID] = s
	r.log.Debug("Session started", "match_id", matchID)
	return s
}

func (r *Registry) remove(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, matchID)
	r.log.Debug("Session stopped", "match_id", matchID)
}

// ActiveSessions returns the number of live match sessions
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
