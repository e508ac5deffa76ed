// Package activity implements the append-only per-agent event log (§3) and
// its retention sweep (SPEC_FULL supplement, grounded on agent_service.py's
// activity pruning job: old rows are deleted on a schedule rather than kept
// forever).
package activity

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hunter/internal/models"
)

// Retention is how long an Activity row is kept before Prune deletes it
// (§3: "Retained >= 7 days").
const Retention = 7 * 24 * time.Hour

// Log is an in-memory append-only activity log; internal/store backs the
// same interface with a database table.
type Log struct {
	mu    sync.Mutex
	items []models.Activity
}

// New constructs an empty Log.
func New() *Log {
	return &Log{}
}

// Record appends an activity for agentID, marshalling details to JSON if
// non-nil.
func (l *Log) Record(agentID string, typ models.ActivityType, message string, details interface{}, now time.Time) models.Activity {
	var detailsJSON string
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			detailsJSON = string(raw)
		}
	}
	a := models.Activity{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Type:      typ,
		Message:   message,
		Details:   detailsJSON,
		CreatedAt: now,
	}
	l.mu.Lock()
	l.items = append(l.items, a)
	l.mu.Unlock()
	return a
}

// ForAgent returns the most recent limit activities for agentID, newest
// first (limit<=0 returns all).
func (l *Log) ForAgent(agentID string, limit int) []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Activity
	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].AgentID == agentID {
			out = append(out, l.items[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// All returns the most recent limit activities across every agent, newest
// first (limit<=0 returns all).
func (l *Log) All(limit int) []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Activity, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.items[n-1-i]
	}
	return out
}

// Prune deletes every activity older than Retention relative to now,
// returning the count removed. Intended to run once per cycle or on a
// standalone sweep timer.
func (l *Log) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-Retention)
	kept := l.items[:0]
	removed := 0
	for _, a := range l.items {
		if a.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	l.items = kept
	return removed
}

// Errorf records an ActivityError event with a formatted message, the
// pattern cycle code uses for isolated per-asset failures (§7).
func (l *Log) Errorf(agentID string, now time.Time, format string, args ...interface{}) models.Activity {
	return l.Record(agentID, models.ActivityError, fmt.Sprintf(format, args...), nil, now)
}
