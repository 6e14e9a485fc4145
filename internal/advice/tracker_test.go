package advice_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prohealth/prohealth/internal/advice"
)

func TestTracker_NewerTicketSupersedesOlder(t *testing.T) {
	tracker := advice.NewTracker()

	first := tracker.Begin("session-1")
	second := tracker.Begin("session-1")

	assert.False(t, tracker.IsCurrent(first))
	assert.True(t, tracker.IsCurrent(second))
	assert.Greater(t, second.Seq, first.Seq)
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	tracker := advice.NewTracker()

	a := tracker.Begin("a")
	b := tracker.Begin("b")
	tracker.Begin("a")

	assert.False(t, tracker.IsCurrent(a))
	assert.True(t, tracker.IsCurrent(b))
}

func TestTracker_Invalidate(t *testing.T) {
	tracker := advice.NewTracker()

	ticket := tracker.Begin("s")
	tracker.Invalidate("s")
	assert.False(t, tracker.IsCurrent(ticket))
	assert.False(t, tracker.Finish(ticket))
	assert.Zero(t, tracker.Len())
}

func TestTracker_FinishReleasesKey(t *testing.T) {
	tracker := advice.NewTracker()

	ticket := tracker.Begin("s")
	assert.True(t, tracker.Finish(ticket))
	assert.Zero(t, tracker.Len())

	// A finished ticket never becomes current again, even after the key
	// is reused.
	next := tracker.Begin("s")
	assert.NotEqual(t, ticket.Seq, next.Seq)
	assert.False(t, tracker.IsCurrent(ticket))
	assert.True(t, tracker.IsCurrent(next))
}

func TestTracker_DoesNotGrowWithDistinctKeys(t *testing.T) {
	tracker := advice.NewTracker()

	for i := range 1000 {
		key := fmt.Sprintf("session-%d", i)
		tracker.Invalidate(key)
		assert.True(t, tracker.Finish(tracker.Begin(key)))
	}
	assert.Zero(t, tracker.Len())
}

func TestTracker_StaleFinishKeepsNewerTicket(t *testing.T) {
	tracker := advice.NewTracker()

	old := tracker.Begin("s")
	newer := tracker.Begin("s")

	assert.False(t, tracker.Finish(old))
	assert.Equal(t, 1, tracker.Len())
	assert.True(t, tracker.Finish(newer))
	assert.Zero(t, tracker.Len())
}

func TestTracker_ConcurrentBegin(t *testing.T) {
	tracker := advice.NewTracker()

	var wg sync.WaitGroup
	tickets := make([]advice.Ticket, 50)
	for i := range tickets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i] = tracker.Begin("s")
		}(i)
	}
	wg.Wait()

	current := 0
	seen := make(map[uint64]bool)
	for _, tk := range tickets {
		assert.False(t, seen[tk.Seq], "duplicate sequence %d", tk.Seq)
		seen[tk.Seq] = true
		if tracker.IsCurrent(tk) {
			current++
		}
	}
	assert.Equal(t, 1, current)
}
