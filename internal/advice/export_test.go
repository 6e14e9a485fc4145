package advice

// Len returns the number of keys with a current ticket in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.current)
}
