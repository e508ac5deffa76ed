package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/models"
)

func TestRecordAndForAgentOrdersNewestFirst(t *testing.T) {
	l := New()
	now := time.Now()
	l.Record("agent-1", models.ActivityCycleBegin, "cycle begin", nil, now)
	l.Record("agent-1", models.ActivityCycleEnd, "cycle end", map[string]int{"scanned": 5}, now.Add(time.Second))
	l.Record("agent-2", models.ActivityInfo, "other agent", nil, now)

	items := l.ForAgent("agent-1", 0)
	require.Len(t, items, 2)
	assert.Equal(t, models.ActivityCycleEnd, items[0].Type)
	assert.Contains(t, items[0].Details, "scanned")
}

func TestPruneRemovesOldActivities(t *testing.T) {
	l := New()
	now := time.Now()
	l.Record("agent-1", models.ActivityInfo, "old", nil, now.Add(-8*24*time.Hour))
	l.Record("agent-1", models.ActivityInfo, "new", nil, now)

	removed := l.Prune(now)
	assert.Equal(t, 1, removed)
	assert.Len(t, l.All(0), 1)
}

func TestAllRespectsLimit(t *testing.T) {
	l := New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		l.Record("agent-1", models.ActivityInfo, "msg", nil, now.Add(time.Duration(i)*time.Second))
	}
	items := l.All(2)
	require.Len(t, items, 2)
}
