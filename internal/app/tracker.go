package app

import "sync"

// Tracker hands out increasing request tokens per client. Only the result
// for a client's latest token may be shown or stored.
type Tracker struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{latest: map[string]uint64{}}
}

func (t *Tracker) Issue(client string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.latest[client] = t.next

	return t.next
}

func (t *Tracker) IsLatest(client string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.latest[client] == token
}

// Done forgets client once its latest request has finished.
func (t *Tracker) Done(client string, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest[client] == token {
		delete(t.latest, client)
	}
}
