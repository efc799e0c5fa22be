package resilience

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/agrimind/agrimind/internal/apperr"
)

// UpstreamStatus summarises an upstream for the ops status endpoint.
type UpstreamStatus string

const (
	StatusUp       UpstreamStatus = "up"
	StatusDegraded UpstreamStatus = "degraded"
	StatusDown     UpstreamStatus = "down"
)

// UpstreamHealth is a point-in-time view of one registered upstream client
// (weather, market, model server, LLM).
type UpstreamHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Status maps the breaker state onto up/degraded/down.
func (h *UpstreamHealth) Status() UpstreamStatus {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		return StatusUp
	case gobreaker.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusDown
	}
}

// Registry tracks upstream clients so /v1/ops/status can report on them.
type Registry struct {
	mu        sync.RWMutex
	upstreams map[string]*tracked
}

type tracked struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

func NewRegistry() *Registry {
	return &Registry{upstreams: make(map[string]*tracked)}
}

// Register adds a client. Registering the same name twice replaces the entry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstreams[name] = &tracked{client: client}
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.upstreams, name)
}

func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := time.Now()
		u.lastSuccessAt = &now
	}
}

// RecordFailure stores the failure time and class. Raw transport text is not
// kept because it can carry request URLs and their query strings.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := time.Now()
		u.lastFailureAt = &now
		if err != nil {
			u.lastError = FailureClass(err)
		}
	}
}

// FailureClass reduces an upstream error to a short label safe to publish.
func FailureClass(err error) string {
	var serverErr *ServerError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &serverErr):
		return serverErr.Error()
	case errors.Is(err, ErrCircuitOpen):
		return "circuit breaker open"
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		return "upstream timeout"
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return "upstream unavailable"
	default:
		return "upstream error"
	}
}

// Health returns the view of one upstream, or nil if it is not registered.
func (r *Registry) Health(name string) *UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.upstreams[name]
	if !ok {
		return nil
	}
	return u.health(name)
}

// Snapshot returns every registered upstream ordered by name.
func (r *Registry) Snapshot() []*UpstreamHealth {
	r.mu.RLock()
	out := make([]*UpstreamHealth, 0, len(r.upstreams))
	for name, u := range r.upstreams {
		out = append(out, u.health(name))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.upstreams)
}

func (u *tracked) health(name string) *UpstreamHealth {
	return &UpstreamHealth{
		Name:          name,
		CircuitState:  u.client.CircuitBreakerState(),
		Counts:        u.client.CircuitBreakerCounts(),
		LastSuccessAt: u.lastSuccessAt,
		LastFailureAt: u.lastFailureAt,
		LastError:     u.lastError,
	}
}
