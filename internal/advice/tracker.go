package advice

import "sync"

// Ticket identifies one in-flight advice request for a context key.
type Ticket struct {
	Key string
	Seq uint64
}

// Tracker hands out tickets so a caller can tell whether a finished
// request still belongs to the latest result. Requests are never
// cancelled; stale responses are only reported.
//
// Sequence numbers come from one counter shared by all keys and are never
// reused, so a key's entry can be dropped as soon as nothing current is in
// flight for it. The map only holds keys with an outstanding current ticket.
type Tracker struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]uint64)}
}

// Begin issues a new ticket for key, superseding all earlier ones.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.current[key] = t.next
	return Ticket{Key: key, Seq: t.next}
}

// Invalidate supersedes every outstanding ticket for key, for example when
// a new result is computed.
func (t *Tracker) Invalidate(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.current, key)
}

// IsCurrent reports whether ticket is still the latest for its key.
func (t *Tracker) IsCurrent(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.current[ticket.Key]
	return ok && seq == ticket.Seq
}

// Finish reports whether ticket is still current and releases it. Every
// Begin must be paired with a Finish.
func (t *Tracker) Finish(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.current[ticket.Key]
	if !ok || seq != ticket.Seq {
		return false
	}
	delete(t.current, ticket.Key)
	return true
}
