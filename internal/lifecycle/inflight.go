package lifecycle

import "sync"

// slugGuard enforces single-writer discipline per slug: concurrent
// delete/recover calls for the same tenant must serialize, with the
// loser failing fast rather than corrupting state.
type slugGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSlugGuard() *slugGuard {
	return &slugGuard{held: make(map[string]struct{})}
}

// acquire claims the slug or returns OperationInProgressError if
// another operation holds it.
func (g *slugGuard) acquire(slug string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[slug]; ok {
		return &OperationInProgressError{Slug: slug}
	}
	g.held[slug] = struct{}{}
	return nil
}

func (g *slugGuard) release(slug string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, slug)
}
