package memory

import (
	"context"
	"sync"

	"neurostudy/internal/domain"
)

// Guard is an in-process generation guard keyed by study.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

// Acquire marks key as in flight. The returned release is safe to call more than once.
func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, &domain.ConflictError{
			Message:      "a generation is already running for this study",
			ResourceType: "study",
			ResourceID:   key,
		}
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
