// Package params holds the strategy parameter set: a fixed, enumerable list
// of typed parameters with defaults and ranges, an in-memory store with JSON
// persistence, validated apply semantics, and pub/sub change events for
// persistence collaborators.
package params

import (
	"errors"
	"fmt"
)

// Type is the parameter value type.
type Type string

const (
	TypeFloat Type = "float"
	TypeBool  Type = "bool"
	TypeEnum  Type = "enum"
)

// Sentinel errors surfaced by Apply. Invalid configuration is the only error
// class that rejects an operation instead of being silently defaulted:
// coercing a bad value would corrupt the tested-values contract of the
// sensitivity sweep.
var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidValue     = errors.New("invalid parameter value")
)

// Definition describes one strategy parameter.
type Definition struct {
	Name    string
	Type    Type
	Default any
	Min     float64  // floats only
	Max     float64  // floats only
	Options []string // enums only
	Display string
}

// Priority mode options for the combined chain.
const (
	PriorityMeanReversionFirst = "mean_reversion_first"
	PriorityCalendarFirst      = "calendar_first"
)

// Names in declaration order, used for deterministic iteration.
var Order = []string{
	"mr_threshold",
	"bounce_threshold",
	"mean_reversion_enabled",
	"calendar_effect_enabled",
	"signal_priority",
}

// Definitions is the closed parameter set. Adding a parameter here is the
// only way to make it sweepable and applyable.
var Definitions = map[string]Definition{
	"mr_threshold": {
		Name:    "mr_threshold",
		Type:    TypeFloat,
		Default: -2.0,
		Min:     -4.0,
		Max:     -0.5,
		Display: "Mean Reversion Threshold",
	},
	"bounce_threshold": {
		Name:    "bounce_threshold",
		Type:    TypeFloat,
		Default: -5.0,
		Min:     -8.0,
		Max:     -2.0,
		Display: "Intraday Bounce Threshold",
	},
	"mean_reversion_enabled": {
		Name:    "mean_reversion_enabled",
		Type:    TypeBool,
		Default: true,
		Display: "Mean Reversion Strategy",
	},
	"calendar_effect_enabled": {
		Name:    "calendar_effect_enabled",
		Type:    TypeBool,
		Default: true,
		Display: "Calendar Effect Strategy",
	},
	"signal_priority": {
		Name:    "signal_priority",
		Type:    TypeEnum,
		Default: PriorityMeanReversionFirst,
		Options: []string{PriorityMeanReversionFirst, PriorityCalendarFirst},
		Display: "Signal Priority Mode",
	},
}

// validate checks value against the definition, returning the normalized
// value (JSON numbers arrive as float64; ints are accepted for floats).
func (d Definition) validate(value any) (any, error) {
	switch d.Type {
	case TypeFloat:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		default:
			return nil, fmt.Errorf("%w: %s expects a number, got %T", ErrInvalidValue, d.Name, value)
		}
		if f < d.Min || f > d.Max {
			return nil, fmt.Errorf("%w: %s=%v outside range [%v, %v]", ErrInvalidValue, d.Name, f, d.Min, d.Max)
		}
		return f, nil

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a boolean, got %T", ErrInvalidValue, d.Name, value)
		}
		return b, nil

	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidValue, d.Name, value)
		}
		for _, opt := range d.Options {
			if s == opt {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s=%q not in %v", ErrInvalidValue, d.Name, s, d.Options)

	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %q", ErrInvalidValue, d.Name, d.Type)
	}
}
