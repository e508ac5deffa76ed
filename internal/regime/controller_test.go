package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/models"
)

func TestFirstClassifyEstablishesNormalBull(t *testing.T) {
	c := New()
	rt, action := c.Classify(Input{QQQPrice: 450, VIX: 15}, time.Now())
	assert.Equal(t, models.RegimeNormalBull, rt)
	require.NotNil(t, action)
	assert.Contains(t, action.Activate, LegShortPut)
}

func TestVIXSpikeTriggersDefense(t *testing.T) {
	c := New()
	c.Classify(Input{QQQPrice: 450, VIX: 15}, time.Now())
	rt, action := c.Classify(Input{QQQPrice: 450, VIX: 50, VIXShutdownThresh: 45}, time.Now())
	assert.Equal(t, models.RegimeDefenseTrigger, rt)
	require.NotNil(t, action)
	assert.True(t, action.ClosePutSpreads)
}

func TestPriceBelowRecoveryStrikeTriggersDefense(t *testing.T) {
	c := New()
	c.Classify(Input{QQQPrice: 450, VIX: 15}, time.Now())
	strike := 440.0
	c.Current().RecoveryStrike = &strike
	rt, action := c.Classify(Input{QQQPrice: 430, VIX: 20}, time.Now())
	assert.Equal(t, models.RegimeDefenseTrigger, rt)
	require.NotNil(t, action)
}

func TestRecoveryCompletesAboveStrike(t *testing.T) {
	c := New()
	c.Classify(Input{QQQPrice: 450, VIX: 50, VIXShutdownThresh: 45}, time.Now())
	c.transition(models.RegimeRecoveryMode, Input{QQQPrice: 400}, time.Now())
	strike := c.Current().RecoveryStrike
	require.NotNil(t, strike)

	rt, action := c.Classify(Input{QQQPrice: *strike + 10, VIX: 15}, time.Now())
	assert.Equal(t, models.RegimeRecoveryComplete, rt)
	require.NotNil(t, action)
	assert.True(t, action.CloseCallSpreads)
}

func TestRecoveryCompleteTransitionsBackToNormalBull(t *testing.T) {
	c := New()
	c.Classify(Input{QQQPrice: 450, VIX: 15}, time.Now())
	c.transitionWithStrike(models.RegimeRecoveryComplete, 460, nil, time.Now())

	rt, action := c.Classify(Input{QQQPrice: 460, VIX: 15}, time.Now())
	assert.Equal(t, models.RegimeNormalBull, rt)
	require.NotNil(t, action)
	assert.Len(t, c.History(), 2)
}
