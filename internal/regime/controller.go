// Package regime implements the options-workflow market-regime state
// machine (§4.9): {normal_bull, defense_trigger, recovery_mode,
// recovery_complete} with VIX-driven and strike-driven transitions.
// Grounded on the teacher's decision/engine.go state-dispatch style
// (named states, entry actions fired on transition) adapted to the
// spec's four-state machine instead of the teacher's tactic states.
package regime

import (
	"fmt"
	"time"

	"hunter/internal/models"
)

// Leg names fired by regime entry actions (§4.9).
const (
	LegShortPut  = "short_put"
	LegShortCall = "short_call"
	LegLongCall  = "long_call"
	LegLongPut   = "long_put"
	LegRisk      = "risk"
)

// Action is one entry-action side effect: activate/deactivate a leg, or
// close existing positions of a kind.
type Action struct {
	Activate   []string
	Deactivate []string
	ClosePutSpreads  bool
	CloseCallSpreads bool
	CloseLongCalls   bool
}

// Input bundles the live market state the classifier needs.
type Input struct {
	VIX               float64
	QQQPrice          float64
	VIXShutdownThresh float64 // default 45
}

// Controller holds the current regime and the history of transitions.
type Controller struct {
	current *models.Regime
	history []models.Regime
}

// New constructs a Controller with no regime yet recorded; the first
// Classify call establishes normal_bull (§4.9: "first ever run").
func New() *Controller {
	return &Controller{}
}

// Current returns the active regime, or nil if Classify has never run.
func (c *Controller) Current() *models.Regime { return c.current }

// History returns all past (ended) regimes, oldest first.
func (c *Controller) History() []models.Regime { return c.history }

// Classify evaluates the transition rules against in and returns the new
// regime plus its entry Action, transitioning state when the rules fire.
// A nil second return means no transition occurred this call.
func (c *Controller) Classify(in Input, now time.Time) (models.RegimeType, *Action) {
	threshold := in.VIXShutdownThresh
	if threshold <= 0 {
		threshold = 45
	}

	if c.current == nil {
		return c.transition(models.RegimeNormalBull, in, now)
	}

	switch c.current.Type {
	case models.RegimeNormalBull:
		if in.VIX >= threshold {
			return c.transition(models.RegimeDefenseTrigger, in, now)
		}
		if c.current.RecoveryStrike != nil && in.QQQPrice < *c.current.RecoveryStrike {
			return c.transition(models.RegimeDefenseTrigger, in, now)
		}
		return c.current.Type, nil

	case models.RegimeDefenseTrigger:
		if in.VIX >= threshold {
			return c.current.Type, nil
		}
		return c.current.Type, nil

	case models.RegimeRecoveryMode:
		if in.VIX >= threshold {
			return c.transition(models.RegimeDefenseTrigger, in, now)
		}
		if c.current.RecoveryStrike != nil && in.QQQPrice > *c.current.RecoveryStrike {
			return c.transition(models.RegimeRecoveryComplete, in, now)
		}
		return c.current.Type, nil

	case models.RegimeRecoveryComplete:
		return c.transition(models.RegimeNormalBull, in, now)

	default:
		return c.current.Type, nil
	}
}

// TransitionTo forces a regime change (admin endpoint POST
// /orchestrator/regime/{type}), carrying an optional recovery strike.
func (c *Controller) TransitionTo(t models.RegimeType, qqqPrice float64, recoveryStrike *float64, now time.Time) *Action {
	_, action := c.transitionWithStrike(t, qqqPrice, recoveryStrike, now)
	return action
}

func (c *Controller) transition(t models.RegimeType, in Input, now time.Time) (models.RegimeType, *Action) {
	var strike *float64
	if c.current != nil {
		strike = c.current.RecoveryStrike
	}
	if t == models.RegimeRecoveryMode && strike == nil {
		s := in.QQQPrice
		strike = &s
	}
	return c.transitionWithStrike(t, in.QQQPrice, strike, now)
}

func (c *Controller) transitionWithStrike(t models.RegimeType, qqqPrice float64, strike *float64, now time.Time) (models.RegimeType, *Action) {
	if c.current != nil {
		ended := now
		c.current.EndedAt = &ended
		c.current.Active = false
		c.history = append(c.history, *c.current)
	}
	c.current = &models.Regime{
		ID:              fmt.Sprintf("regime-%d", now.UnixNano()),
		Type:            t,
		QQQPriceAtStart: qqqPrice,
		RecoveryStrike:  strike,
		StartedAt:       now,
		Active:          true,
	}
	return t, entryAction(t)
}

// entryAction returns the side effects §4.9 fires on entry into t.
func entryAction(t models.RegimeType) *Action {
	switch t {
	case models.RegimeNormalBull:
		return &Action{Activate: []string{LegShortPut, LegRisk}, Deactivate: []string{LegShortCall, LegLongCall, LegLongPut}}
	case models.RegimeDefenseTrigger:
		return &Action{Activate: []string{LegRisk}, ClosePutSpreads: true}
	case models.RegimeRecoveryMode:
		return &Action{Activate: []string{LegLongCall, LegShortCall, LegRisk}, Deactivate: []string{LegShortPut}}
	case models.RegimeRecoveryComplete:
		return &Action{CloseCallSpreads: true, CloseLongCalls: true}
	default:
		return &Action{}
	}
}
