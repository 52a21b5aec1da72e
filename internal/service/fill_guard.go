package service

import "sync"

// fillGuard orders cache fills against invalidations for the same user. A
// reader takes a generation before loading from the database; an
// invalidation in the meantime bumps it and the reader's fill is dropped.
// Users with no read in flight carry no state.
type fillGuard struct {
	mu    sync.Mutex
	users map[string]*fillState
}

type fillState struct {
	readers int
	gen     uint64
}

func newFillGuard() *fillGuard {
	return &fillGuard{users: make(map[string]*fillState)}
}

func (g *fillGuard) begin(userID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.users[userID]
	if !ok {
		st = &fillState{}
		g.users[userID] = st
	}
	st.readers++
	return st.gen
}

// invalidate must be called after the write is durable and before the
// cache entry is deleted.
func (g *fillGuard) invalidate(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.users[userID]; ok {
		st.gen++
	}
}

// commit runs fill when no invalidation happened since begin, then ends the
// read. fill runs under the guard lock, so an invalidation either precedes
// the check or follows the fill and its delete removes what was written.
// A nil fill only ends the read. It reports whether fill ran.
func (g *fillGuard) commit(userID string, gen uint64, fill func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.users[userID]
	if !ok {
		return false
	}
	ran := false
	if fill != nil && st.gen == gen {
		fill()
		ran = true
	}
	st.readers--
	if st.readers == 0 {
		delete(g.users, userID)
	}
	return ran
}
