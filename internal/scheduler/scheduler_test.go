package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleFlightCoalescesOverlappingTriggers(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	sf := newSingleFlight(func() {
		atomic.AddInt32(&calls, 1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		sf.Trigger()
	}()
	<-started

	// Two more ticks arrive while the first run is in flight; only one
	// make-up run should occur.
	sf.Trigger()
	sf.Trigger()
	close(release)
	wg.Wait()

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestAddJobReplacesPriorJobForSameName(t *testing.T) {
	s := New()
	require.NoError(t, s.AddJob("agent-1", Trigger{IntervalMinutes: 15}, func() {}))
	s.mu.Lock()
	firstID := s.jobs["agent-1"].entryID
	s.mu.Unlock()

	require.NoError(t, s.AddJob("agent-1", Trigger{IntervalMinutes: 30}, func() {}))
	s.mu.Lock()
	secondID := s.jobs["agent-1"].entryID
	jobCount := len(s.jobs)
	s.mu.Unlock()

	assert.NotEqual(t, firstID, secondID)
	assert.Equal(t, 1, jobCount)
}

func TestStartStopIdempotent(t *testing.T) {
	s := New()
	s.Start()
	s.Start()
	assert.True(t, s.Status().Running)
	s.Stop()
	s.Stop()
	assert.False(t, s.Status().Running)
}

func TestStatusListsActiveAgents(t *testing.T) {
	s := New()
	require.NoError(t, s.AddJob("crypto-hunter-1", Trigger{IntervalMinutes: 15}, func() {}))
	require.NoError(t, s.AddJob("gem-hunter-1", Trigger{IntervalMinutes: 60}, func() {}))
	st := s.Status()
	assert.Len(t, st.Jobs, 2)
	assert.ElementsMatch(t, []string{"crypto-hunter-1", "gem-hunter-1"}, st.ActiveAgents)
}
