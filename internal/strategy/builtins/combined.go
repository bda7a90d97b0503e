package builtins

import (
	"backcast/internal/strategy"
)

// DefaultCalendarWeekday is the Monday=0 index of the calendar-effect day
// (Thursday).
const DefaultCalendarWeekday = 3

// NewCombined builds the combined generator: a priority chain where
// mean-reversion unconditionally outranks the calendar effect. The ordering
// is load-bearing for the financial semantics under test and must not be
// changed; a day where both would fire trades the mean-reversion side.
//
// The inner mean-reversion runs with weekday-skip disabled since the chain
// itself owns the calendar logic. enableCalendar drops the calendar leg
// entirely (the chain then degenerates to mean-reversion only).
func NewCombined(mrThreshold float64, enableCalendar bool, calendarWeekday int) *strategy.Chain {
	evaluators := []strategy.Generator{
		NewMeanReversion(mrThreshold, NoSkipWeekday),
	}
	if enableCalendar {
		evaluators = append(evaluators, NewCalendarEffect(calendarWeekday))
	}
	return strategy.NewChain("combined", evaluators...)
}

// NewConfiguredChain builds the combined chain from a full parameter
// configuration: enabled legs only, ordered by the priority mode. Any
// priority other than "calendar_first" means mean reversion first.
func NewConfiguredChain(mrThreshold float64, mrEnabled, calEnabled bool, calendarFirst bool, calendarWeekday int) *strategy.Chain {
	var evaluators []strategy.Generator
	appendMR := func() {
		if mrEnabled {
			evaluators = append(evaluators, NewMeanReversion(mrThreshold, NoSkipWeekday))
		}
	}
	appendCal := func() {
		if calEnabled {
			evaluators = append(evaluators, NewCalendarEffect(calendarWeekday))
		}
	}
	if calendarFirst {
		appendCal()
		appendMR()
	} else {
		appendMR()
		appendCal()
	}
	return strategy.NewChain("combined", evaluators...)
}

// DefaultRegistry returns a Registry with every built-in generator registered
// under its canonical name and the combined chain marked active, mirroring
// the production default.
func DefaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewMeanReversion(-3.0, DefaultCalendarWeekday)) // skip Thursdays
	r.Register(NewCalendarEffect(DefaultCalendarWeekday))
	r.Register(NewIntradayBounce(-5.0))
	r.Register(NewTrendFollowing(20, 50))
	r.Register(NewCombined(-2.0, true, DefaultCalendarWeekday))
	_ = r.SetActive("combined")
	return r
}
