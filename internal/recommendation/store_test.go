package recommendation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/herr"
	"hunter/internal/models"
)

func TestLifecycleApproveExecute(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rec := s.Create(models.Recommendation{Action: models.ActionOpenPutSpread}, 0, t0)
	assert.Equal(t, t0.Add(4*time.Hour), rec.ExpiresAt)
	assert.Equal(t, models.RecPending, rec.Status)

	approved, err := s.Approve(rec.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.RecApproved, approved.Status)

	_, err = s.Approve(rec.ID, t0.Add(90*time.Minute))
	require.Error(t, err)
	assert.ErrorIs(t, err, herr.ErrInvariantViolation)

	executed, err := s.Execute(rec.ID, "X", 0.60, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.RecExecuted, executed.Status)
	assert.Equal(t, "X", executed.OrderID)
	assert.Equal(t, 0.60, executed.ExecutionPrice)
}

func TestSweepExpiresStalePending(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	first := s.Create(models.Recommendation{}, 0, t0)
	s.Create(models.Recommendation{}, 4*time.Hour, t0.Add(5*time.Hour))

	n := s.Sweep(t0.Add(4*time.Hour).Add(time.Second))
	assert.Equal(t, 1, n)

	got, err := s.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecExpired, got.Status)
}

func TestRejectRequiresPending(t *testing.T) {
	s := New()
	t0 := time.Now()
	rec := s.Create(models.Recommendation{}, 0, t0)
	_, err := s.Reject(rec.ID, "bad setup", t0)
	require.NoError(t, err)

	_, err = s.Reject(rec.ID, "again", t0)
	require.Error(t, err)
}
